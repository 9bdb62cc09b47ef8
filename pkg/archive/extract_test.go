package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func buildZip(t *testing.T, files map[string]string, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	files := map[string]string{
		"readme.txt": "GeoNames readme",
		"US.txt":     "US\t93109\tSanta Barbara\n",
	}
	data := buildZip(t, files, "readme.txt", "US.txt")

	dest := filepath.Join(t.TempDir(), "data", "US.txt")
	got, err := Extract(data, "US.txt", dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != dest {
		t.Errorf("path = %q, want %q", got, dest)
	}
	b, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != files["US.txt"] {
		t.Errorf("content = %q, want %q", b, files["US.txt"])
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(dest), ".*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestExtract_Overwrites(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "CA_full.txt")
	if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	data := buildZip(t, map[string]string{"CA_full.txt": "new"}, "CA_full.txt")
	if _, err := Extract(data, "CA_full.txt", dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	b, _ := os.ReadFile(dest)
	if string(b) != "new" {
		t.Errorf("content = %q, want new", b)
	}
}

func TestExtract_EntryNotFound(t *testing.T) {
	data := buildZip(t, map[string]string{"other.txt": "x"}, "other.txt")
	dest := filepath.Join(t.TempDir(), "US.txt")

	_, err := Extract(data, "US.txt", dest)
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("error = %v, want ErrEntryNotFound", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("destination should not exist, stat err = %v", err)
	}
}

func TestExtract_CorruptArchive(t *testing.T) {
	_, err := Extract([]byte("not a zip"), "US.txt", filepath.Join(t.TempDir(), "US.txt"))
	if err == nil {
		t.Fatal("expected error for corrupt archive")
	}
	if errors.Is(err, ErrEntryNotFound) {
		t.Error("corrupt container must not be reported as a missing entry")
	}
}

func TestEntries_StopsEarly(t *testing.T) {
	data := buildZip(t, map[string]string{"a": "1", "b": "2", "c": "3"}, "a", "b", "c")
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	var seen []string
	for f := range Entries(zr) {
		seen = append(seen, f.Name)
		if f.Name == "b" {
			break
		}
	}
	if len(seen) != 2 {
		t.Errorf("seen = %v, want [a b]", seen)
	}
}

func TestFind_SkipsDirectories(t *testing.T) {
	data := buildZip(t, map[string]string{"US.txt/": "", "US.txt": "rows"}, "US.txt/", "US.txt")
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	f, ok := Find(zr, "US.txt")
	if !ok {
		t.Fatal("entry not found")
	}
	if f.FileInfo().IsDir() {
		t.Error("Find returned a directory entry")
	}
}
