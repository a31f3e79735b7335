package pathguard

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

// The gate's error set. ValidatePath and ValidatePathForWrite wrap these
// with %w so callers can match with errors.Is. Every one of them means the
// path must not be touched.
var (
	// ErrInvalidPath reports an empty or malformed input path.
	ErrInvalidPath = errors.New("invalid path")

	// ErrResolve reports that the OS could not canonicalize the path, for
	// example because an intermediate component is not a directory.
	ErrResolve = errors.New("path resolution failed")

	// ErrForbiddenPath reports a resolved path under a deny-list prefix.
	ErrForbiddenPath = errors.New("access denied to system path")

	// ErrSymlinkDepth reports a symlink chain longer than the configured
	// bound, which usually means a circular reference.
	ErrSymlinkDepth = errors.New("symlink resolution depth exceeded - possible circular reference")

	// ErrSymlinkTarget reports a symlink whose target failed validation.
	ErrSymlinkTarget = errors.New("symlink points to forbidden location")
)

// reasonFor turns a gate error into the display string shown to the user.
// Symlink failures map to fixed phrasings; everything else is the error text
// with the first letter capitalized.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrSymlinkDepth):
		return "Symlink resolution depth exceeded - possible circular reference"
	case errors.Is(err, ErrSymlinkTarget):
		return "Symlink points to forbidden location"
	default:
		return capitalize(err.Error())
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
