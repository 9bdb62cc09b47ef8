package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
)

// ErrEntryNotFound is returned when an archive holds no entry with the
// requested name. The container itself was readable.
var ErrEntryNotFound = errors.New("archive entry not found")

// Entries yields the archive's entries in directory order, stopping as soon as
// the consumer does.
func Entries(r *zip.Reader) iter.Seq[*zip.File] {
	return func(yield func(*zip.File) bool) {
		for _, f := range r.File {
			if !yield(f) {
				return
			}
		}
	}
}

// Find returns the first regular-file entry named name.
func Find(r *zip.Reader, name string) (*zip.File, bool) {
	for f := range Entries(r) {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Extract decompresses the entry named entryName from an in-memory zip archive
// into destPath and returns destPath. The entry is written to a temporary file
// in the same directory and renamed into place, so destPath is either the
// previous file or the complete new one.
func Extract(data []byte, entryName, destPath string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}

	f, ok := Find(zr, entryName)
	if !ok {
		return "", fmt.Errorf("%s: %w", entryName, ErrEntryNotFound)
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	if err := writeAtomic(destPath, rc); err != nil {
		return "", fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return destPath, nil
}

func writeAtomic(destPath string, r io.Reader) (err error) {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destPath)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), destPath)
}
