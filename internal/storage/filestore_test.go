package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	dberrors "github.com/maruel/filedb/internal/errors"
)

func TestNewFileStore(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s, err := NewFileStore("/data/databases", "shop.json")
		if err != nil {
			t.Fatalf("NewFileStore() error = %v", err)
		}
		if got, want := s.Path(), filepath.Join("/data/databases", "shop.json"); got != want {
			t.Errorf("Path() = %q, want %q", got, want)
		}
		if s.Dir() != "/data/databases" {
			t.Errorf("Dir() = %q", s.Dir())
		}
	})

	t.Run("errors", func(t *testing.T) {
		for _, name := range []string{"", "a/b.json", ".."} {
			t.Run(name, func(t *testing.T) {
				if _, err := NewFileStore(t.TempDir(), name); err == nil {
					t.Errorf("NewFileStore(%q) expected error, got nil", name)
				}
			})
		}
	})
}

func TestFileStore(t *testing.T) {
	t.Run("Initialize", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "databases")
		s, err := NewFileStore(dir, "shop.json")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(s.Path()); !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("file exists before Initialize: %v", err)
		}
		if err := s.Initialize(); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if _, err := os.Stat(s.Path()); err != nil {
			t.Fatalf("file missing after Initialize: %v", err)
		}
		data, err := s.ReadAll()
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		if string(data) != "{}" {
			t.Errorf("ReadAll() = %q, want %q", data, "{}")
		}

		t.Run("idempotent", func(t *testing.T) {
			if err := s.WriteAll([]byte(`{"orders":{}}`)); err != nil {
				t.Fatal(err)
			}
			if err := s.Initialize(); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			data, err := s.ReadAll()
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != `{"orders":{}}` {
				t.Errorf("ReadAll() = %q, Initialize overwrote contents", data)
			}
		})
	})

	t.Run("WriteAll", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewFileStore(dir, "db.json")
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Initialize(); err != nil {
			t.Fatal(err)
		}
		for _, want := range []string{`{"a":{}}`, `{}`, `{"b":{"_1":{"id":"_1"}}}`} {
			if err := s.WriteAll([]byte(want)); err != nil {
				t.Fatalf("WriteAll() error = %v", err)
			}
			got, err := s.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != want {
				t.Errorf("ReadAll() = %q, want %q", got, want)
			}
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("directory has %d entries, want 1 (temp files left behind?)", len(entries))
		}
	})

	t.Run("WriteAll missing directory", func(t *testing.T) {
		s, err := NewFileStore(filepath.Join(t.TempDir(), "gone"), "db.json")
		if err != nil {
			t.Fatal(err)
		}
		err = s.WriteAll([]byte("{}"))
		if !dberrors.IsFileSystem(err) {
			t.Errorf("WriteAll() error = %v, want FileSystemError", err)
		}
	})

	t.Run("ReadAll missing file", func(t *testing.T) {
		s, err := NewFileStore(t.TempDir(), "db.json")
		if err != nil {
			t.Fatal(err)
		}
		_, err = s.ReadAll()
		if !dberrors.IsFileSystem(err) {
			t.Errorf("ReadAll() error = %v, want FileSystemError", err)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("ReadAll() error = %v, want fs.ErrNotExist in chain", err)
		}
	})
}
