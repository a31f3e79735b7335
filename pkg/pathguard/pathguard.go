// Package pathguard enforces boxfm's filesystem access boundary.
//
// Every file-mutating operation in the application (copy, move, rename,
// delete, folder creation, trash moves) must pass through a Guard before
// touching the OS. The Guard canonicalizes paths, refuses anything under a
// fixed set of system directories, audits symlink chains with a bounded
// recursion depth, and answers composite "is this operation safe" queries
// with a human-readable verdict.
//
// A Guard is immutable after construction and safe for concurrent use. It
// keeps no state between calls and never caches results.
package pathguard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxSymlinkDepth bounds recursive symlink target validation.
// Chains longer than this are treated as a security violation.
const DefaultMaxSymlinkDepth = 5

// DefaultForbiddenPaths returns the built-in deny list of system directory
// prefixes. A fresh slice is returned so callers cannot mutate the defaults.
func DefaultForbiddenPaths() []string {
	return []string{
		"/bin", "/sbin", "/usr/bin", "/usr/sbin",
		"/etc", "/proc", "/sys", "/dev",
		"/lib", "/lib64", "/usr/lib", "/usr/lib64",
		"/boot", "/var/log", "/var/spool",
	}
}

// Config carries the tunable parts of a Guard. The zero value selects the
// compiled-in defaults. The deny list and depth bound are fixed at
// construction time; a Guard never reads ambient configuration.
type Config struct {
	// ForbiddenPaths is the set of absolute directory prefixes the guard
	// denies. Nil selects DefaultForbiddenPaths.
	ForbiddenPaths []string

	// MaxSymlinkDepth bounds symlink chain validation. Values <= 0 select
	// DefaultMaxSymlinkDepth.
	MaxSymlinkDepth int
}

// Guard validates and authorizes filesystem paths.
type Guard struct {
	forbidden []string
	maxDepth  int
}

// New creates a Guard from cfg. Forbidden prefixes are cleaned so that
// trailing separators in the configuration cannot weaken matching.
func New(cfg Config) *Guard {
	src := cfg.ForbiddenPaths
	if src == nil {
		src = DefaultForbiddenPaths()
	}
	forbidden := make([]string, 0, len(src))
	for _, p := range src {
		forbidden = append(forbidden, filepath.Clean(p))
	}

	depth := cfg.MaxSymlinkDepth
	if depth <= 0 {
		depth = DefaultMaxSymlinkDepth
	}

	return &Guard{forbidden: forbidden, maxDepth: depth}
}

// Default returns a Guard with the compiled-in deny list and depth bound.
func Default() *Guard {
	return New(Config{})
}

// ValidatePath canonicalizes path and clears it against the deny list and
// the symlink audit. It returns the resolved absolute path, or an error from
// the package's error set when the path must not be touched.
func (g *Guard) ValidatePath(path string) (string, error) {
	return g.validate(path, 0)
}

// ValidatePathForWrite is the mutation-side entry point used before writes,
// folder creation and trash restores. The strict deny list applies to reads
// and writes alike, so the checks are identical to ValidatePath; the separate
// name keeps mutation call sites explicit.
func (g *Guard) ValidatePathForWrite(path string) (string, error) {
	return g.validate(path, 0)
}

// validate is the full gate: depth bound, input checks, symlink audit,
// resolution, forbidden-zone check. depth counts symlink hops taken so far.
func (g *Guard) validate(path string, depth int) (string, error) {
	if depth > g.maxDepth {
		return "", ErrSymlinkDepth
	}

	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("%w: path contains null byte", ErrInvalidPath)
	}

	abs := path
	if !filepath.IsAbs(abs) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrResolve, err)
		}
		// Not filepath.Join: Join collapses ".." lexically before symlinks
		// in the existing prefix have been resolved.
		abs = wd + string(filepath.Separator) + abs
	}

	// Lstat does not follow the final component, so a symlink is audited
	// before anything resolves through it.
	if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return g.auditSymlink(abs, depth)
	}

	resolved, err := g.resolve(abs)
	if err != nil {
		return "", err
	}

	if err := g.checkForbidden(resolved); err != nil {
		return "", err
	}

	return resolved, nil
}

// auditSymlink validates the target of the symlink at linkPath. The target
// is revalidated through the whole gate with depth+1, since it may itself be
// a symlink. Depth overflow is reported as ErrSymlinkDepth; every other
// failure of the target collapses to ErrSymlinkTarget so callers cannot
// probe the deny list through link targets.
func (g *Guard) auditSymlink(linkPath string, depth int) (string, error) {
	target, err := os.Readlink(linkPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrResolve, err)
	}

	// Relative targets resolve against the symlink's own directory, not the
	// process working directory.
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(linkPath), target)
	}

	resolved, err := g.validate(target, depth+1)
	if err != nil {
		if errors.Is(err, ErrSymlinkDepth) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s -> %s", ErrSymlinkTarget, linkPath, target)
	}

	return resolved, nil
}

// resolve canonicalizes an absolute path: all symlinks resolved, "." and
// ".." collapsed. Paths with a nonexistent tail are resolved up to their
// deepest existing ancestor, with the remainder re-appended, so "can I
// create here" queries work for not-yet-existing targets.
func (g *Guard) resolve(abs string) (string, error) {
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		// Broken intermediate component (not a directory, permission on a
		// parent, symlink loop inside the path). Surfaced, never swallowed.
		return "", fmt.Errorf("%w: %v", ErrResolve, err)
	}

	return resolveMissing(filepath.Clean(abs))
}

// resolveMissing walks up from a nonexistent path to the deepest existing
// ancestor, canonicalizes that, and re-appends the missing components.
func resolveMissing(path string) (string, error) {
	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}

	resolved, err := filepath.EvalSymlinks(parent)
	if err == nil {
		return filepath.Join(resolved, filepath.Base(path)), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %v", ErrResolve, err)
	}

	up, err := resolveMissing(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(up, filepath.Base(path)), nil
}

// checkForbidden rejects resolved paths under any deny-list prefix. Matching
// is separator-bounded: "/etc" matches "/etc" and "/etc/passwd" but never
// "/etcetera".
func (g *Guard) checkForbidden(resolved string) error {
	sep := string(filepath.Separator)
	for _, prefix := range g.forbidden {
		if resolved == prefix || strings.HasPrefix(resolved, prefix+sep) {
			return fmt.Errorf("%w: %s", ErrForbiddenPath, prefix)
		}
	}
	return nil
}
