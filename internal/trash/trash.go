// Package trash implements a recoverable delete. Trashed items are moved
// into a dedicated directory under a unique name, and a .trashinfo JSON
// sidecar records where each item came from so it can be restored.
package trash

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"boxfm/internal/logging"
	"boxfm/pkg/pathguard"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

const (
	infoSuffix         = ".trashinfo"
	deletionDateFormat = "2006-01-02 15:04:05"
)

// ErrNotInTrash reports a trash name with no matching item.
var ErrNotInTrash = errors.New("item not found in trash")

// Manager owns a trash directory.
type Manager struct {
	dir    string
	guard  *pathguard.Guard
	logger *logging.AppLogger
}

// Item is one trashed entry.
type Item struct {
	TrashName    string
	OriginalPath string
	DeletedAt    time.Time
	Size         int64
	IsDir        bool
}

// trashInfo is the on-disk sidecar format.
type trashInfo struct {
	OriginalPath string `json:"original_path"`
	DeletionDate string `json:"deletion_date"`
	TrashName    string `json:"trash_name"`
}

// NewManager creates a Manager rooted at dir, creating the directory when
// missing.
func NewManager(dir string, guard *pathguard.Guard, logger *logging.AppLogger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating trash directory: %w", err)
	}
	return &Manager{dir: dir, guard: guard, logger: logger}, nil
}

// Dir returns the trash directory path.
func (m *Manager) Dir() string {
	return m.dir
}

// Trash moves path into the trash and returns the name it was stored under.
// The path must clear the delete safety check; a refused check returns an
// error carrying the verdict reason.
func (m *Manager) Trash(path string) (string, error) {
	real, err := m.guard.ValidatePath(path)
	if err != nil {
		return "", fmt.Errorf("trash refused: %w", err)
	}

	if _, err := os.Lstat(real); err != nil {
		return "", fmt.Errorf("trash refused: %w", err)
	}

	// Trashing removes the item from its directory, so it must clear the
	// same checks as a delete.
	if verdict := m.guard.IsSafeOperation(real, "", pathguard.OpDelete); !verdict.Safe {
		return "", fmt.Errorf("trash refused: %s", verdict.Reason)
	}

	// A uuid suffix keeps repeated deletions of the same name apart.
	trashName := fmt.Sprintf("%s_%s", filepath.Base(real), uuid.NewString()[:8])
	target := filepath.Join(m.dir, trashName)

	if err := moveAll(real, target); err != nil {
		return "", fmt.Errorf("moving to trash: %w", err)
	}

	info := trashInfo{
		OriginalPath: real,
		DeletionDate: time.Now().Format(deletionDateFormat),
		TrashName:    trashName,
	}
	if err := m.writeInfo(info); err != nil {
		// Roll the move back rather than leave an unrecoverable item.
		_ = moveAll(target, real)
		return "", err
	}

	m.logger.Info("Trashed", "path", real, "name", trashName)
	return trashName, nil
}

// Restore moves a trashed item back to its original location and returns the
// restored path. When the original path is occupied the restored item gets a
// "_restored_N" suffix before its extension.
func (m *Manager) Restore(trashName string) (string, error) {
	info, err := m.readInfo(trashName)
	if err != nil {
		return "", err
	}

	dest := info.OriginalPath
	if _, err := os.Lstat(dest); err == nil {
		dest = restoredName(dest)
	}

	real, err := m.guard.ValidatePathForWrite(dest)
	if err != nil {
		return "", fmt.Errorf("restore refused: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(real), 0o755); err != nil {
		return "", fmt.Errorf("restoring: %w", err)
	}
	if err := moveAll(filepath.Join(m.dir, trashName), real); err != nil {
		return "", fmt.Errorf("restoring: %w", err)
	}
	if err := os.Remove(m.infoPath(trashName)); err != nil {
		m.logger.Warn("Leftover trashinfo", "name", trashName, "error", err)
	}

	m.logger.Info("Restored", "name", trashName, "path", real)
	return real, nil
}

// DeletePermanently removes a single trashed item and its sidecar.
func (m *Manager) DeletePermanently(trashName string) error {
	if _, err := m.readInfo(trashName); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(m.dir, trashName)); err != nil {
		return fmt.Errorf("deleting trashed item: %w", err)
	}
	return os.Remove(m.infoPath(trashName))
}

// Empty removes every item from the trash and returns how many were removed.
func (m *Manager) Empty() (int, error) {
	items, err := m.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, item := range items {
		if err := m.DeletePermanently(item.TrashName); err != nil {
			return removed, err
		}
		removed++
	}
	m.logger.Info("Emptied trash", "removed", removed)
	return removed, nil
}

// AutoCleanup permanently removes items deleted more than maxAge ago and
// returns how many were removed.
func (m *Manager) AutoCleanup(maxAge time.Duration) (int, error) {
	items, err := m.List()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, item := range items {
		if item.DeletedAt.After(cutoff) {
			continue
		}
		if err := m.DeletePermanently(item.TrashName); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		m.logger.Info("Trash auto-cleanup", "removed", removed)
	}
	return removed, nil
}

// List returns the trashed items, newest first. Items whose sidecar is
// missing or unreadable are skipped.
func (m *Manager) List() ([]Item, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("reading trash directory: %w", err)
	}

	var items []Item
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), infoSuffix) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), infoSuffix)
		info, err := m.readInfo(name)
		if err != nil {
			m.logger.Warn("Skipping unreadable trashinfo", "name", name, "error", err)
			continue
		}

		deletedAt, _ := time.ParseInLocation(deletionDateFormat, info.DeletionDate, time.Local)
		item := Item{
			TrashName:    name,
			OriginalPath: info.OriginalPath,
			DeletedAt:    deletedAt,
		}
		if st, err := os.Lstat(filepath.Join(m.dir, name)); err == nil {
			item.IsDir = st.IsDir()
			if item.IsDir {
				item.Size = treeSize(filepath.Join(m.dir, name))
			} else {
				item.Size = st.Size()
			}
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].DeletedAt.After(items[j].DeletedAt)
	})
	return items, nil
}

// Size returns the total bytes held in the trash directory.
func (m *Manager) Size() (int64, error) {
	if _, err := os.Stat(m.dir); err != nil {
		return 0, fmt.Errorf("reading trash directory: %w", err)
	}
	return treeSize(m.dir), nil
}

func (m *Manager) infoPath(trashName string) string {
	return filepath.Join(m.dir, trashName+infoSuffix)
}

func (m *Manager) writeInfo(info trashInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding trashinfo: %w", err)
	}
	if err := os.WriteFile(m.infoPath(info.TrashName), data, 0o600); err != nil {
		return fmt.Errorf("writing trashinfo: %w", err)
	}
	return nil
}

func (m *Manager) readInfo(trashName string) (trashInfo, error) {
	data, err := os.ReadFile(m.infoPath(trashName))
	if err != nil {
		return trashInfo{}, fmt.Errorf("%w: %s", ErrNotInTrash, trashName)
	}
	var info trashInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return trashInfo{}, fmt.Errorf("parsing trashinfo for %s: %w", trashName, err)
	}
	return info, nil
}

// restoredName inserts "_restored_N" before the extension, picking the first
// N whose path is free.
func restoredName(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_restored_%d%s", stem, n, ext)
		if _, err := os.Lstat(candidate); err != nil {
			return candidate
		}
	}
}

func treeSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// moveAll renames src to dst, copying across filesystems when rename is not
// possible.
func moveAll(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, unix.EXDEV) {
		return err
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		err = copyTree(src, dst)
	} else {
		err = copyRegular(src, dst, info.Mode().Perm())
	}
	if err != nil {
		return err
	}
	return os.RemoveAll(src)
}

func copyTree(src, dst string) error {
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
		return copyRegular(path, target, info.Mode().Perm())
	})
}

func copyRegular(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
