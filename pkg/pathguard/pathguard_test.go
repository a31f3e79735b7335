package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathInvalidInput(t *testing.T) {
	guard, _ := newTestRoot(t)

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty string", input: ""},
		{name: "whitespace only", input: "   "},
		{name: "null byte", input: "/media/hdd/a\x00b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.ValidatePath(tt.input)
			assert.ErrorIs(t, err, ErrInvalidPath)
		})
	}
}

func TestValidatePathResolutionIsIdempotent(t *testing.T) {
	guard, root := newTestRoot(t)
	file := mkfile(t, filepath.Join(root, "media/hdd/clip.mp4"), 0o644)

	resolved, err := guard.ValidatePath(file)
	require.NoError(t, err)
	assert.Equal(t, file, resolved)

	again, err := guard.ValidatePath(resolved)
	require.NoError(t, err)
	assert.Equal(t, resolved, again)
}

func TestForbiddenPrefixMatchingIsSeparatorBounded(t *testing.T) {
	guard, root := newTestRoot(t)

	tests := []struct {
		name      string
		path      string
		forbidden bool
	}{
		{name: "forbidden dir itself", path: filepath.Join(root, "etc"), forbidden: true},
		{name: "file under forbidden dir", path: filepath.Join(root, "etc/passwd"), forbidden: true},
		{name: "sibling sharing prefix", path: filepath.Join(root, "etcetera/file"), forbidden: false},
		{name: "nested forbidden dir", path: filepath.Join(root, "usr/bin/tool"), forbidden: true},
		{name: "nested sibling sharing prefix", path: filepath.Join(root, "usr/bin2/tool"), forbidden: false},
		{name: "allowed storage", path: filepath.Join(root, "media/hdd/clip.mp4"), forbidden: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.ValidatePath(tt.path)
			if tt.forbidden {
				assert.ErrorIs(t, err, ErrForbiddenPath)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathNonexistentTail(t *testing.T) {
	guard, root := newTestRoot(t)

	resolved, err := guard.ValidatePathForWrite(filepath.Join(root, "media/hdd/new/sub/file.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "media/hdd/new/sub/file.txt"), resolved)

	_, err = guard.ValidatePathForWrite(filepath.Join(root, "etc/newfile"))
	assert.ErrorIs(t, err, ErrForbiddenPath)
}

func TestTraversalCannotBypassDenyList(t *testing.T) {
	guard, root := newTestRoot(t)
	mkfile(t, filepath.Join(root, "etc/shadow"), 0o644)

	_, err := guard.ValidatePath(root + "/media/usb/../../etc/shadow")
	assert.ErrorIs(t, err, ErrForbiddenPath)
	assert.Contains(t, err.Error(), filepath.Join(root, "etc"))
}

func TestValidatePathBrokenIntermediateComponent(t *testing.T) {
	guard, root := newTestRoot(t)
	file := mkfile(t, filepath.Join(root, "media/hdd/notadir"), 0o644)

	_, err := guard.ValidatePath(filepath.Join(file, "child"))
	assert.ErrorIs(t, err, ErrResolve)
}

func TestSymlinkIntoForbiddenZoneRejected(t *testing.T) {
	guard, root := newTestRoot(t)
	mkfile(t, filepath.Join(root, "etc/passwd"), 0o644)

	link := filepath.Join(root, "media/hdd/innocent")
	createSymlink(t, filepath.Join(root, "etc/passwd"), link)

	_, err := guard.ValidatePath(link)
	assert.ErrorIs(t, err, ErrSymlinkTarget)
}

func TestRelativeSymlinkTargetResolvesAgainstLinkDirectory(t *testing.T) {
	guard, root := newTestRoot(t)
	mkfile(t, filepath.Join(root, "etc/passwd"), 0o644)
	mkfile(t, filepath.Join(root, "media/hdd/clip.mp4"), 0o644)

	escape := filepath.Join(root, "media/hdd/escape")
	createSymlink(t, "../../etc/passwd", escape)
	_, err := guard.ValidatePath(escape)
	assert.ErrorIs(t, err, ErrSymlinkTarget)

	benign := filepath.Join(root, "media/hdd/benign")
	createSymlink(t, "clip.mp4", benign)
	resolved, err := guard.ValidatePath(benign)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "media/hdd/clip.mp4"), resolved)
}

// makeChain creates a chain of n symlinks ending at target and returns the
// head of the chain.
func makeChain(t *testing.T, dir, target string, n int) string {
	t.Helper()
	prev := target
	var head string
	for i := n; i >= 1; i-- {
		head = filepath.Join(dir, fmt.Sprintf("hop%d", i))
		createSymlink(t, prev, head)
		prev = head
	}
	return head
}

func TestSymlinkChainAtDepthBound(t *testing.T) {
	guard, root := newTestRoot(t)
	target := mkfile(t, filepath.Join(root, "media/hdd/clip.mp4"), 0o644)

	head := makeChain(t, filepath.Join(root, "media/hdd"), target, DefaultMaxSymlinkDepth)
	resolved, err := guard.ValidatePath(head)
	require.NoError(t, err)
	assert.Equal(t, target, resolved)
}

func TestSymlinkChainBeyondDepthBound(t *testing.T) {
	guard, root := newTestRoot(t)
	target := mkfile(t, filepath.Join(root, "media/usb/clip.mp4"), 0o644)

	head := makeChain(t, filepath.Join(root, "media/usb"), target, DefaultMaxSymlinkDepth+1)
	_, err := guard.ValidatePath(head)
	assert.ErrorIs(t, err, ErrSymlinkDepth)
}

func TestSymlinkChainIntoForbiddenZone(t *testing.T) {
	guard, root := newTestRoot(t)
	mkfile(t, filepath.Join(root, "etc/shadow"), 0o644)

	head := makeChain(t, filepath.Join(root, "media/hdd"), filepath.Join(root, "etc/shadow"), 3)
	_, err := guard.ValidatePath(head)
	assert.ErrorIs(t, err, ErrSymlinkTarget)
}

func TestSymlinkCycleTerminates(t *testing.T) {
	guard, root := newTestRoot(t)
	dir := filepath.Join(root, "media/hdd")

	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	c := filepath.Join(dir, "c")
	createSymlink(t, b, a)
	createSymlink(t, c, b)
	createSymlink(t, a, c)

	_, err := guard.ValidatePath(a)
	assert.ErrorIs(t, err, ErrSymlinkDepth)
}

func TestCustomSymlinkDepth(t *testing.T) {
	_, root := newTestRoot(t)
	guard := New(Config{
		ForbiddenPaths:  []string{filepath.Join(root, "etc")},
		MaxSymlinkDepth: 2,
	})
	target := mkfile(t, filepath.Join(root, "media/hdd/clip.mp4"), 0o644)

	head := makeChain(t, filepath.Join(root, "media/hdd"), target, 3)
	_, err := guard.ValidatePath(head)
	assert.ErrorIs(t, err, ErrSymlinkDepth)
}

func TestNewCleansForbiddenPrefixes(t *testing.T) {
	_, root := newTestRoot(t)
	guard := New(Config{ForbiddenPaths: []string{filepath.Join(root, "etc") + string(os.PathSeparator)}})

	_, err := guard.ValidatePath(filepath.Join(root, "etc/passwd"))
	assert.ErrorIs(t, err, ErrForbiddenPath)

	_, err = guard.ValidatePath(filepath.Join(root, "etcetera/file"))
	assert.NoError(t, err)
}

func TestDefaultForbiddenPathsReturnsCopy(t *testing.T) {
	first := DefaultForbiddenPaths()
	first[0] = "/mutated"
	assert.Equal(t, "/bin", DefaultForbiddenPaths()[0])
}
