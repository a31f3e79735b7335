package pathguard

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// newTestRoot creates a canonical temp directory laid out like a small
// system: media/hdd and media/usb as user storage, etc and usr/bin as the
// forbidden zones of the returned guard.
func newTestRoot(t *testing.T) (*Guard, string) {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("failed to canonicalize temp dir: %v", err)
	}

	for _, dir := range []string{"media/hdd", "media/usb", "etc", "usr/bin", "etcetera", "usr/bin2"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	guard := New(Config{
		ForbiddenPaths: []string{
			filepath.Join(root, "etc"),
			filepath.Join(root, "usr/bin"),
		},
	})
	return guard, root
}

// mkfile creates a small file with the given permissions.
func mkfile(t *testing.T, path string, perm os.FileMode) string {
	t.Helper()
	if err := os.WriteFile(path, []byte("test"), perm); err != nil {
		t.Fatalf("failed to create file %s: %v", path, err)
	}
	return path
}

// createSymlink creates a symbolic link, skipping on platforms where the
// process lacks symlink privileges.
func createSymlink(t *testing.T, oldname, newname string) {
	t.Helper()
	if err := os.Symlink(oldname, newname); err != nil {
		if runtime.GOOS == "windows" {
			t.Skipf("symlink creation failed on Windows: %v", err)
		}
		t.Fatalf("failed to create symlink: %v", err)
	}
}

// skipIfRoot skips permission-denial tests that cannot work when the test
// process bypasses file mode checks.
func skipIfRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("running as root, file permission checks are bypassed")
	}
}

// restoreWritable re-enables write permission so t.TempDir cleanup works.
func restoreWritable(t *testing.T, path string) {
	t.Helper()
	t.Cleanup(func() {
		if err := os.Chmod(path, 0o755); err != nil {
			t.Logf("warning: failed to restore permissions on %s: %v", path, err)
		}
	})
}
