package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
)

func writeTar(out *os.File, sources []string, gzipped bool) error {
	var w io.Writer = out
	var gz *gzip.Writer
	if gzipped {
		gz = gzip.NewWriter(out)
		w = gz
	}
	tw := tar.NewWriter(w)

	err := walkSources(sources, func(name, path string, info fs.FileInfo) error {
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(tw, in)
		return err
	})
	if err != nil {
		tw.Close()
		if gz != nil {
			gz.Close()
		}
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if gz != nil {
		return gz.Close()
	}
	return nil
}

// openTar returns a tar reader over the archive plus a close function.
func openTar(path string, gzipped bool) (*tar.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading archive: %w", err)
	}
	var r io.Reader = f
	closer := f.Close
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("archive is corrupt: %w", err)
		}
		r = gz
		closer = func() error {
			gz.Close()
			return f.Close()
		}
	}
	return tar.NewReader(r), closer, nil
}

func listTar(path string, gzipped bool) ([]Entry, error) {
	tr, closer, err := openTar(path, gzipped)
	if err != nil {
		return nil, err
	}
	defer closer()

	var entries []Entry
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		entries = append(entries, Entry{
			Name:     hdr.Name,
			Size:     hdr.Size,
			Modified: hdr.ModTime,
			IsDir:    hdr.Typeflag == tar.TypeDir,
		})
	}
}

func testTar(path string, gzipped bool) error {
	tr, closer, err := openTar(path, gzipped)
	if err != nil {
		return err
	}
	defer closer()

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("archive is corrupt: %w", err)
		}
		if _, err := io.Copy(io.Discard, tr); err != nil {
			return fmt.Errorf("archive is corrupt at %s: %w", hdr.Name, err)
		}
	}
}

func extractTar(path, destDir string, gzipped bool) error {
	tr, closer, err := openTar(path, gzipped)
	if err != nil {
		return err
	}
	defer closer()

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir, tar.TypeReg:
		case tar.TypeSymlink, tar.TypeLink:
			return fmt.Errorf("%w: link %s", ErrUnsafeEntry, hdr.Name)
		default:
			// Devices, fifos and the rest are skipped.
			continue
		}

		target, err := entryTarget(destDir, hdr.Name)
		if err != nil {
			return err
		}

		if hdr.Typeflag == tar.TypeDir {
			if err := os.MkdirAll(target, hdr.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("extracting %s: %w", hdr.Name, err)
			}
			continue
		}
		if err := writeEntryFile(target, hdr.FileInfo().Mode(), tr); err != nil {
			return fmt.Errorf("extracting %s: %w", hdr.Name, err)
		}
	}
}
