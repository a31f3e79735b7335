// Package fsutil provides small filesystem helpers shared across boxfm:
// filename sanitization, size and date formatting, MIME lookup, home
// directory expansion and disk usage queries.
package fsutil

import (
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// FormatSize formats a byte count as a human readable string (e.g. "1.5 MB").
// Negative sizes read as "Unknown".
func FormatSize(size int64) string {
	if size < 0 {
		return "Unknown"
	}
	return humanize.Bytes(uint64(size))
}

// FormatDate formats a modification time for display in file listings.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Format("2006-01-02 15:04")
}

// ExpandPath expands a path that starts with "~/" to the user's home
// directory. Other paths are returned unchanged.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original path if home directory unavailable
	}

	return filepath.Join(home, path[2:])
}

// mimeByExt covers the media containers common on set-top boxes that the
// platform MIME database tends to miss.
var mimeByExt = map[string]string{
	".ts":   "video/mp2t",
	".m2ts": "video/mp2t",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".zip":  "application/zip",
	".tar":  "application/x-tar",
	".gz":   "application/gzip",
}

// MimeType guesses the MIME type of a file from its name. Unknown
// extensions fall back to application/octet-stream.
func MimeType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if mt, ok := mimeByExt[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

// DiskUsage returns total and free bytes of the filesystem containing path.
func DiskUsage(path string) (total, free uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	bsize := uint64(st.Bsize)
	return st.Blocks * bsize, st.Bavail * bsize, nil
}
