package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"boxfm/internal/logging"
	"boxfm/pkg/pathguard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	files := map[string]string{
		"media/hdd/movie.ts":          "0123456789",
		"media/hdd/Movie2.TS":         "01234",
		"media/hdd/notes.txt":         "notes",
		"media/hdd/shows/ep1.ts":      "ep",
		"media/hdd/.hidden/secret.ts": "s",
		"media/hdd/.dotfile":          "d",
		"etc/passwd":                  "x",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	guard := pathguard.New(pathguard.Config{
		ForbiddenPaths: []string{filepath.Join(root, "etc")},
	})
	logger, _ := logging.NewTestLogger()
	return NewEngine(guard, logger), root
}

func names(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Name)
	}
	return out
}

func TestGlobCaseInsensitive(t *testing.T) {
	e, root := newTestEngine(t)

	results, err := e.Search(context.Background(), filepath.Join(root, "media/hdd"), "*.ts", Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"movie.ts", "Movie2.TS", "ep1.ts"}, names(results))
}

func TestGlobCaseSensitive(t *testing.T) {
	e, root := newTestEngine(t)

	results, err := e.Search(context.Background(), filepath.Join(root, "media/hdd"), "*.ts", Options{CaseSensitive: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"movie.ts", "ep1.ts"}, names(results))
}

func TestRegexpMode(t *testing.T) {
	e, root := newTestEngine(t)

	results, err := e.Search(context.Background(), filepath.Join(root, "media/hdd"), `^movie\d*\.ts$`, Options{Mode: ModeRegexp})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"movie.ts", "Movie2.TS"}, names(results))
}

func TestInvalidRegexp(t *testing.T) {
	e, root := newTestEngine(t)

	_, err := e.Search(context.Background(), filepath.Join(root, "media/hdd"), "(", Options{Mode: ModeRegexp})
	assert.Error(t, err)
}

func TestHiddenEntriesSkipped(t *testing.T) {
	e, root := newTestEngine(t)

	results, err := e.Search(context.Background(), filepath.Join(root, "media/hdd"), "*", Options{})
	require.NoError(t, err)
	for _, name := range names(results) {
		assert.NotContains(t, name, ".hidden")
		assert.NotEqual(t, ".dotfile", name)
		assert.NotEqual(t, "secret.ts", name)
	}
}

func TestIncludeHidden(t *testing.T) {
	e, root := newTestEngine(t)

	results, err := e.Search(context.Background(), filepath.Join(root, "media/hdd"), "*", Options{IncludeHidden: true})
	require.NoError(t, err)
	assert.Contains(t, names(results), ".dotfile")
	assert.Contains(t, names(results), "secret.ts")
}

func TestExtensionFilter(t *testing.T) {
	e, root := newTestEngine(t)

	results, err := e.Search(context.Background(), filepath.Join(root, "media/hdd"), "*", Options{
		Extensions: []string{"txt"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, names(results))
}

func TestSizeFilter(t *testing.T) {
	e, root := newTestEngine(t)

	results, err := e.Search(context.Background(), filepath.Join(root, "media/hdd"), "*.ts", Options{
		CaseSensitive: true,
		MinSize:       5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"movie.ts"}, names(results))
}

func TestModifiedFilter(t *testing.T) {
	e, root := newTestEngine(t)

	old := filepath.Join(root, "media/hdd/notes.txt")
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	results, err := e.Search(context.Background(), filepath.Join(root, "media/hdd"), "*", Options{
		ModifiedAfter: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	assert.NotContains(t, names(results), "notes.txt")
}

func TestMaxResults(t *testing.T) {
	e, root := newTestEngine(t)

	results, err := e.Search(context.Background(), filepath.Join(root, "media/hdd"), "*", Options{MaxResults: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestForbiddenRoot(t *testing.T) {
	e, root := newTestEngine(t)

	_, err := e.Search(context.Background(), filepath.Join(root, "etc"), "*", Options{})
	assert.Error(t, err)
}

func TestMissingRoot(t *testing.T) {
	e, root := newTestEngine(t)

	_, err := e.Search(context.Background(), filepath.Join(root, "media/nope"), "*", Options{})
	assert.Error(t, err)
}

func TestCancelledContext(t *testing.T) {
	e, root := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := e.Search(ctx, filepath.Join(root, "media/hdd"), "*", Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestDirectoriesMatch(t *testing.T) {
	e, root := newTestEngine(t)

	results, err := e.Search(context.Background(), filepath.Join(root, "media/hdd"), "shows", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].IsDir)
}
