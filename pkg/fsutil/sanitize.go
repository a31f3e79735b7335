package fsutil

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Characters that break on at least one of the filesystems a set-top box
// mounts (FAT/NTFS shares included).
const invalidFilenameChars = `<>:"/\|?*`

// Device names reserved on Windows filesystems; files named after them are
// prefixed so they survive a copy to an NTFS/FAT share.
var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {},
	"COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {},
	"LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

const maxFilenameLen = 255

// SanitizeFilename rewrites a filename so it is safe to create on any
// mounted filesystem. Invalid and control characters are replaced with
// underscores, reserved device names are prefixed, overlong names are
// truncated preserving the extension, and the result is never empty.
func SanitizeFilename(name string) string {
	if name == "" {
		return "unnamed"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 32:
			// drop control characters
		case strings.ContainsRune(invalidFilenameChars, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	name = b.String()

	base := strings.ToUpper(name)
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}
	if _, ok := reservedNames[base]; ok {
		name = "_" + name
	}

	name = strings.Trim(name, " .")
	if name == "" {
		return "unnamed"
	}

	if len(name) > maxFilenameLen {
		ext := filepath.Ext(name)
		if len(ext) >= maxFilenameLen {
			ext = ""
		}
		name = truncateRunes(name, maxFilenameLen-len(ext)) + ext
	}

	return name
}

// truncateRunes cuts s to at most max bytes without splitting a multibyte
// rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
