package pathguard

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Permission is the kind of access a caller wants on a path. It determines
// which OS access bits are checked and on which path component.
type Permission int

const (
	PermRead Permission = iota
	PermWrite
	PermExecute
	PermDelete
)

func (p Permission) String() string {
	switch p {
	case PermRead:
		return "read"
	case PermWrite:
		return "write"
	case PermExecute:
		return "execute"
	case PermDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// CheckPermission reports whether perm is granted on path. The path is first
// cleared through the full gate; any validation failure reads as denied.
//
// Deleting removes a directory entry, so PermDelete requires write access on
// the parent directory as well as on the target itself. For PermWrite and
// PermDelete on a path that does not exist yet, the check falls back to the
// parent directory ("can I create/delete here"); for PermRead and
// PermExecute a missing path is simply denied.
func (g *Guard) CheckPermission(path string, perm Permission) bool {
	resolved, err := g.validate(path, 0)
	if err != nil {
		return false
	}

	if _, err := os.Stat(resolved); err != nil {
		if perm != PermWrite && perm != PermDelete {
			return false
		}
		resolved = filepath.Dir(resolved)
	}

	switch perm {
	case PermRead:
		return accessible(resolved, unix.R_OK)
	case PermWrite:
		return accessible(resolved, unix.W_OK)
	case PermExecute:
		return accessible(resolved, unix.X_OK)
	case PermDelete:
		return accessible(filepath.Dir(resolved), unix.W_OK) && accessible(resolved, unix.W_OK)
	default:
		return false
	}
}

func accessible(path string, mode uint32) bool {
	return unix.Access(path, mode) == nil
}
