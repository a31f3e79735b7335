// Package search walks a directory tree looking for entries whose name
// matches a glob or regular expression pattern, with optional filters on
// extension, size and modification time. The walk root is screened through
// the path guard and the walk itself is context-cancellable.
package search

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"boxfm/internal/logging"
	"boxfm/pkg/pathguard"
)

// Mode selects how the pattern is interpreted.
type Mode int

const (
	// ModeGlob matches the pattern as a shell glob against the base name.
	ModeGlob Mode = iota
	// ModeRegexp matches the pattern as a regular expression against the
	// base name.
	ModeRegexp
)

// Options tunes a search. The zero value means case-insensitive glob over
// everything under the root, hidden entries excluded.
type Options struct {
	Mode          Mode
	CaseSensitive bool

	// Extensions, when non-empty, restricts matches to these extensions
	// (with or without the leading dot). Directories never match when set.
	Extensions []string

	// MinSize and MaxSize bound the file size in bytes. Zero means
	// unbounded. Directories are exempt.
	MinSize int64
	MaxSize int64

	// ModifiedAfter and ModifiedBefore bound the modification time. Zero
	// values mean unbounded.
	ModifiedAfter  time.Time
	ModifiedBefore time.Time

	// IncludeHidden makes the walk descend into and report dot-entries.
	IncludeHidden bool

	// MaxResults stops the search after this many matches. Zero means
	// unlimited.
	MaxResults int
}

// Result is one matching entry.
type Result struct {
	Path     string
	Name     string
	Size     int64
	Modified time.Time
	IsDir    bool
}

// Engine runs guarded searches.
type Engine struct {
	guard  *pathguard.Guard
	logger *logging.AppLogger
}

func NewEngine(guard *pathguard.Guard, logger *logging.AppLogger) *Engine {
	return &Engine{guard: guard, logger: logger}
}

// errStopWalk aborts the walk once MaxResults is reached.
var errStopWalk = fmt.Errorf("walk stopped")

// Search walks root and returns the entries matching pattern under opts.
// Unreadable subtrees are skipped, not fatal. The search stops early when
// ctx is cancelled, returning the matches found so far along with ctx.Err().
func (e *Engine) Search(ctx context.Context, root, pattern string, opts Options) ([]Result, error) {
	realRoot, err := e.guard.ValidatePath(root)
	if err != nil {
		return nil, fmt.Errorf("search refused: %w", err)
	}
	if st, err := os.Stat(realRoot); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("search root is not a directory: %s", root)
	}

	match, err := compileMatcher(pattern, opts)
	if err != nil {
		return nil, err
	}

	normExts := make([]string, 0, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normExts = append(normExts, ext)
	}

	start := time.Now()
	var results []Result
	var ctxErr error

	walkErr := filepath.WalkDir(realRoot, func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			ctxErr = cerr
			return errStopWalk
		}
		if err != nil {
			e.logger.Debug("Skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == realRoot {
			return nil
		}

		name := d.Name()
		if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if !match(name) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !passesFilters(d, info, normExts, opts) {
			return nil
		}

		results = append(results, Result{
			Path:     path,
			Name:     name,
			Size:     info.Size(),
			Modified: info.ModTime(),
			IsDir:    d.IsDir(),
		})
		if opts.MaxResults > 0 && len(results) >= opts.MaxResults {
			return errStopWalk
		}
		return nil
	})

	if walkErr != nil && walkErr != errStopWalk {
		return results, fmt.Errorf("search failed: %w", walkErr)
	}

	e.logger.Debug("Search finished", "root", realRoot, "matches", len(results))
	e.logger.LogPerformance("search", start)
	return results, ctxErr
}

// compileMatcher returns a function testing a base name against pattern.
func compileMatcher(pattern string, opts Options) (func(string) bool, error) {
	switch opts.Mode {
	case ModeRegexp:
		expr := pattern
		if !opts.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		return re.MatchString, nil
	default:
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		if opts.CaseSensitive {
			return func(name string) bool {
				ok, _ := filepath.Match(pattern, name)
				return ok
			}, nil
		}
		lower := strings.ToLower(pattern)
		return func(name string) bool {
			ok, _ := filepath.Match(lower, strings.ToLower(name))
			return ok
		}, nil
	}
}

func passesFilters(d fs.DirEntry, info fs.FileInfo, exts []string, opts Options) bool {
	if len(exts) > 0 {
		if d.IsDir() {
			return false
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		found := false
		for _, want := range exts {
			if ext == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if !d.IsDir() {
		if opts.MinSize > 0 && info.Size() < opts.MinSize {
			return false
		}
		if opts.MaxSize > 0 && info.Size() > opts.MaxSize {
			return false
		}
	}

	if !opts.ModifiedAfter.IsZero() && info.ModTime().Before(opts.ModifiedAfter) {
		return false
	}
	if !opts.ModifiedBefore.IsZero() && info.ModTime().After(opts.ModifiedBefore) {
		return false
	}
	return true
}
