// Package fileops implements boxfm's file operations: copy, move, rename,
// delete, folder creation and file info. Every operation clears both its
// source and destination through the path guard before any OS call.
package fileops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"boxfm/internal/logging"
	"boxfm/pkg/fsutil"
	"boxfm/pkg/pathguard"

	"golang.org/x/sys/unix"
)

var (
	// ErrDenied reports a path guard rejection. The wrapped message carries
	// the user-facing reason.
	ErrDenied = errors.New("operation denied")
	// ErrNotFound reports a missing source path.
	ErrNotFound = errors.New("path not found")
	// ErrExists reports an existing destination when overwrite is off.
	ErrExists = errors.New("destination already exists")
)

// Trasher moves a path into the trash. Satisfied by *trash.Manager; kept as
// an interface so deletion can be tested without a real trash directory.
type Trasher interface {
	Trash(path string) (string, error)
}

// Manager performs guarded file operations.
type Manager struct {
	guard   *pathguard.Guard
	logger  *logging.AppLogger
	trasher Trasher
}

// NewManager creates a Manager. trasher may be nil, in which case deletions
// are always permanent.
func NewManager(guard *pathguard.Guard, logger *logging.AppLogger, trasher Trasher) *Manager {
	return &Manager{guard: guard, logger: logger, trasher: trasher}
}

// Info describes a single file or directory.
type Info struct {
	Name      string
	Path      string
	Size      int64
	Modified  time.Time
	Mode      os.FileMode
	IsDir     bool
	IsSymlink bool
	MimeType  string
}

// Copy copies a file or directory tree from src to dst. An existing
// destination is refused unless overwrite is set.
func (m *Manager) Copy(src, dst string, overwrite bool) error {
	srcReal, err := m.guard.ValidatePath(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDenied, err)
	}
	dstReal, err := m.guard.ValidatePathForWrite(dst)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDenied, err)
	}

	srcInfo, err := os.Stat(srcReal)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, src)
	}

	if _, err := os.Stat(dstReal); err == nil && !overwrite {
		return fmt.Errorf("%w: %s", ErrExists, dst)
	}

	if verdict := m.guard.IsSafeOperation(srcReal, dstReal, pathguard.OpCopy); !verdict.Safe {
		return fmt.Errorf("%w: %s", ErrDenied, verdict.Reason)
	}

	m.logger.Info("Copying", "src", srcReal, "dst", dstReal)
	if srcInfo.IsDir() {
		return copyDir(srcReal, dstReal)
	}
	return copyFile(srcReal, dstReal, srcInfo)
}

// Move moves a file or directory, falling back to copy+delete when src and
// dst live on different filesystems.
func (m *Manager) Move(src, dst string) error {
	srcReal, err := m.guard.ValidatePath(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDenied, err)
	}
	dstReal, err := m.guard.ValidatePathForWrite(dst)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDenied, err)
	}

	if verdict := m.guard.IsSafeOperation(srcReal, dstReal, pathguard.OpMove); !verdict.Safe {
		return fmt.Errorf("%w: %s", ErrDenied, verdict.Reason)
	}

	m.logger.Info("Moving", "src", srcReal, "dst", dstReal)
	if err := os.Rename(srcReal, dstReal); err == nil {
		return nil
	} else if !isCrossDevice(err) {
		return fmt.Errorf("move failed: %w", err)
	}

	// Cross-device: copy then remove the original.
	srcInfo, err := os.Stat(srcReal)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, src)
	}
	if srcInfo.IsDir() {
		if err := copyDir(srcReal, dstReal); err != nil {
			return err
		}
	} else if err := copyFile(srcReal, dstReal, srcInfo); err != nil {
		return err
	}
	return os.RemoveAll(srcReal)
}

// Rename renames a file or directory in place. newName is sanitized before
// use so a crafted name cannot redirect the target.
func (m *Manager) Rename(src, newName string) error {
	srcReal, err := m.guard.ValidatePath(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDenied, err)
	}

	dst := filepath.Join(filepath.Dir(srcReal), fsutil.SanitizeFilename(newName))
	dstReal, err := m.guard.ValidatePathForWrite(dst)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDenied, err)
	}

	if verdict := m.guard.IsSafeOperation(srcReal, dstReal, pathguard.OpRename); !verdict.Safe {
		return fmt.Errorf("%w: %s", ErrDenied, verdict.Reason)
	}

	m.logger.Info("Renaming", "src", srcReal, "dst", dstReal)
	if err := os.Rename(srcReal, dstReal); err != nil {
		return fmt.Errorf("rename failed: %w", err)
	}
	return nil
}

// Delete removes a file or directory tree. With useTrash and a configured
// trasher the item is moved to the trash instead of being removed.
func (m *Manager) Delete(path string, useTrash bool) error {
	real, err := m.guard.ValidatePath(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDenied, err)
	}

	if verdict := m.guard.IsSafeOperation(real, "", pathguard.OpDelete); !verdict.Safe {
		return fmt.Errorf("%w: %s", ErrDenied, verdict.Reason)
	}

	if useTrash && m.trasher != nil {
		m.logger.Info("Moving to trash", "path", real)
		_, err := m.trasher.Trash(real)
		return err
	}

	m.logger.Info("Deleting", "path", real)
	if err := os.RemoveAll(real); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

// Mkdir creates a directory (and missing parents) after clearing the path
// through the guard.
func (m *Manager) Mkdir(path string) error {
	real, err := m.guard.ValidatePathForWrite(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDenied, err)
	}

	// MkdirAll may have to create several levels, so the write check goes
	// against the nearest ancestor that already exists.
	anchor := real
	for {
		if _, err := os.Stat(anchor); err == nil {
			break
		}
		parent := filepath.Dir(anchor)
		if parent == anchor {
			break
		}
		anchor = parent
	}
	if !m.guard.CheckPermission(anchor, pathguard.PermWrite) {
		return fmt.Errorf("%w: no write permission", ErrDenied)
	}

	m.logger.Info("Creating directory", "path", real)
	if err := os.MkdirAll(real, 0o755); err != nil {
		return fmt.Errorf("mkdir failed: %w", err)
	}
	return nil
}

// Info returns detailed information about a path.
func (m *Manager) Info(path string) (Info, error) {
	real, err := m.guard.ValidatePath(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrDenied, err)
	}

	st, err := os.Stat(real)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	isSymlink := false
	if lst, err := os.Lstat(path); err == nil {
		isSymlink = lst.Mode()&os.ModeSymlink != 0
	}

	return Info{
		Name:      filepath.Base(real),
		Path:      real,
		Size:      st.Size(),
		Modified:  st.ModTime(),
		Mode:      st.Mode(),
		IsDir:     st.IsDir(),
		IsSymlink: isSymlink,
		MimeType:  fsutil.MimeType(real),
	}, nil
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	return errors.As(err, &linkErr) && errors.Is(linkErr.Err, unix.EXDEV)
}

func copyFile(src, dst string, srcInfo os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy failed: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}

	// Preserve the source timestamps like a metadata-preserving copy.
	return os.Chtimes(dst, time.Now(), srcInfo.ModTime())
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(path, target, info)
	})
}
