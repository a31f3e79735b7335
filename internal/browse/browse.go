// Package browse produces the directory listings shown in a file manager
// pane: one level of entries, directories first, with display-ready size and
// date strings. The listed directory is screened through the path guard.
package browse

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"boxfm/internal/logging"
	"boxfm/pkg/fsutil"
	"boxfm/pkg/pathguard"
)

// Entry is one row in a directory listing.
type Entry struct {
	Name      string
	Path      string
	Size      int64
	SizeLabel string
	ModTime   time.Time
	Modified  string
	Mode      os.FileMode
	IsDir     bool
	IsSymlink bool
	MimeType  string
	Writable  bool
}

// SortKey orders a listing.
type SortKey int

const (
	SortByName SortKey = iota
	SortBySize
	SortByDate
)

// Options tunes a listing. The zero value lists visible entries sorted by
// name.
type Options struct {
	ShowHidden bool
	Sort       SortKey
	Reverse    bool
}

// Lister reads guarded directory listings.
type Lister struct {
	guard  *pathguard.Guard
	logger *logging.AppLogger
}

func NewLister(guard *pathguard.Guard, logger *logging.AppLogger) *Lister {
	return &Lister{guard: guard, logger: logger}
}

// List returns the entries of dir. Directories sort before files regardless
// of the sort key. Entries that vanish between ReadDir and Lstat are
// skipped.
func (l *Lister) List(dir string, opts Options) ([]Entry, error) {
	real, err := l.guard.ValidatePath(dir)
	if err != nil {
		return nil, fmt.Errorf("listing refused: %w", err)
	}

	dirents, err := os.ReadDir(real)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		name := d.Name()
		if !opts.ShowHidden && strings.HasPrefix(name, ".") {
			continue
		}

		path := filepath.Join(real, name)
		info, err := os.Lstat(path)
		if err != nil {
			continue
		}

		isSymlink := info.Mode()&os.ModeSymlink != 0
		isDir := info.IsDir()
		if isSymlink {
			// Symlinked directories list as directories when their target
			// passes the gate.
			if st, err := os.Stat(path); err == nil {
				isDir = st.IsDir()
			}
		}

		entry := Entry{
			Name:      name,
			Path:      path,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			Modified:  fsutil.FormatDate(info.ModTime()),
			Mode:      info.Mode(),
			IsDir:     isDir,
			IsSymlink: isSymlink,
			Writable:  l.guard.CheckPermission(path, pathguard.PermWrite),
		}
		if isDir {
			entry.SizeLabel = "<DIR>"
		} else {
			entry.SizeLabel = fsutil.FormatSize(info.Size())
			entry.MimeType = fsutil.MimeType(name)
		}
		entries = append(entries, entry)
	}

	sortEntries(entries, opts)
	l.logger.Debug("Listed directory", "path", real, "entries", len(entries))
	return entries, nil
}

// Parent returns the directory one level up, or dir itself at the
// filesystem root.
func Parent(dir string) string {
	return filepath.Dir(filepath.Clean(dir))
}

func sortEntries(entries []Entry, opts Options) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}

		var less bool
		switch opts.Sort {
		case SortBySize:
			less = a.Size < b.Size
		case SortByDate:
			less = a.ModTime.Before(b.ModTime)
		default:
			less = strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
		if opts.Reverse {
			return !less
		}
		return less
	})
}
