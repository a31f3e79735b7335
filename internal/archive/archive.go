// Package archive creates, lists, tests and extracts zip, tar and tar.gz
// archives. Archive paths and extraction targets go through the path guard,
// and extraction refuses entries that would escape the destination
// directory.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"boxfm/internal/logging"
	"boxfm/pkg/pathguard"
)

// Format is an archive container format.
type Format int

const (
	FormatZip Format = iota
	FormatTar
	FormatTarGz
)

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatTarGz:
		return "tar.gz"
	default:
		return "unknown"
	}
}

var (
	// ErrUnknownFormat reports an archive extension no handler exists for.
	ErrUnknownFormat = errors.New("unsupported archive format")
	// ErrUnsafeEntry reports an archive entry that would write outside the
	// extraction directory or create a symlink.
	ErrUnsafeEntry = errors.New("unsafe archive entry")
)

// DetectFormat derives the Format from a file name.
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(lower, ".tar"):
		return FormatTar, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

// Entry describes one archive member.
type Entry struct {
	Name     string
	Size     int64
	Modified time.Time
	IsDir    bool
}

// Handler performs guarded archive operations.
type Handler struct {
	guard  *pathguard.Guard
	logger *logging.AppLogger
}

func NewHandler(guard *pathguard.Guard, logger *logging.AppLogger) *Handler {
	return &Handler{guard: guard, logger: logger}
}

// Create builds an archive at archivePath from the given source paths. The
// format is derived from the archive file name. Directory sources are added
// recursively.
func (h *Handler) Create(archivePath string, sources []string) error {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return err
	}
	realArchive, err := h.guard.ValidatePathForWrite(archivePath)
	if err != nil {
		return fmt.Errorf("archive refused: %w", err)
	}

	realSources := make([]string, 0, len(sources))
	for _, src := range sources {
		real, err := h.guard.ValidatePath(src)
		if err != nil {
			return fmt.Errorf("archive refused: %w", err)
		}
		if _, err := os.Stat(real); err != nil {
			return fmt.Errorf("archive source missing: %s", src)
		}
		realSources = append(realSources, real)
	}

	out, err := os.OpenFile(realArchive, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	h.logger.Info("Creating archive", "path", realArchive, "format", format, "sources", len(realSources))
	switch format {
	case FormatZip:
		err = writeZip(out, realSources)
	default:
		err = writeTar(out, realSources, format == FormatTarGz)
	}
	if err != nil {
		out.Close()
		os.Remove(realArchive)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(realArchive)
		return fmt.Errorf("creating archive: %w", err)
	}
	return nil
}

// List returns the entries of an archive without extracting it.
func (h *Handler) List(archivePath string) ([]Entry, error) {
	format, real, err := h.openChecked(archivePath)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatZip:
		return listZip(real)
	default:
		return listTar(real, format == FormatTarGz)
	}
}

// Test reads every member of the archive to verify it decodes cleanly.
func (h *Handler) Test(archivePath string) error {
	format, real, err := h.openChecked(archivePath)
	if err != nil {
		return err
	}

	switch format {
	case FormatZip:
		return testZip(real)
	default:
		return testTar(real, format == FormatTarGz)
	}
}

// Extract unpacks the archive into destDir, creating it when missing.
// Entries that would resolve outside destDir and symlink entries are
// rejected and abort the extraction.
func (h *Handler) Extract(archivePath, destDir string) error {
	format, real, err := h.openChecked(archivePath)
	if err != nil {
		return err
	}
	realDest, err := h.guard.ValidatePathForWrite(destDir)
	if err != nil {
		return fmt.Errorf("extract refused: %w", err)
	}
	if err := os.MkdirAll(realDest, 0o755); err != nil {
		return fmt.Errorf("extracting: %w", err)
	}

	h.logger.Info("Extracting archive", "path", real, "dest", realDest)
	switch format {
	case FormatZip:
		return extractZip(real, realDest)
	default:
		return extractTar(real, realDest, format == FormatTarGz)
	}
}

func (h *Handler) openChecked(archivePath string) (Format, string, error) {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return 0, "", err
	}
	real, err := h.guard.ValidatePath(archivePath)
	if err != nil {
		return 0, "", fmt.Errorf("archive refused: %w", err)
	}
	if _, err := os.Stat(real); err != nil {
		return 0, "", fmt.Errorf("archive not found: %s", archivePath)
	}
	return format, real, nil
}

// entryTarget resolves an archive member name inside destDir, rejecting
// absolute names and any ".." escape.
func entryTarget(destDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeEntry, name)
	}
	return filepath.Join(destDir, cleaned), nil
}

func writeEntryFile(target string, mode os.FileMode, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// archiveName maps a filesystem path inside base to its member name, using
// forward slashes as both tar and zip require.
func archiveName(base, path string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(base), path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// walkSources calls fn for every file and directory under the sources.
func walkSources(sources []string, fn func(name string, path string, info fs.FileInfo) error) error {
	for _, src := range sources {
		err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type()&os.ModeSymlink != 0 {
				// Symlinks are not carried into archives.
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			name, err := archiveName(src, path)
			if err != nil {
				return err
			}
			return fn(name, path, info)
		})
		if err != nil {
			return fmt.Errorf("creating archive: %w", err)
		}
	}
	return nil
}
