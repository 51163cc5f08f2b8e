// Package storage owns the durable file of one database and its raw byte
// level synchronization.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/maruel/filedb/internal/codec"
	dberrors "github.com/maruel/filedb/internal/errors"
)

// FileStore handles the file system operations for a single database file.
//
// FileStore does no locking; callers serialize access.
type FileStore struct {
	dir  string
	path string
}

// NewFileStore returns a FileStore for dir/fileName. It does no I/O.
func NewFileStore(dir, fileName string) (*FileStore, error) {
	if fileName == "" || fileName == "." || fileName == ".." || fileName != filepath.Base(fileName) {
		return nil, fmt.Errorf("invalid file name %q", fileName)
	}
	return &FileStore{
		dir:  dir,
		path: filepath.Join(dir, fileName),
	}, nil
}

// Dir returns the containing directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file path.
func (s *FileStore) Path() string {
	return s.path
}

// Initialize creates the containing directory and, if the file is absent,
// writes an empty serialized store to it. Calling it again leaves the file
// contents untouched.
func (s *FileStore) Initialize() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return dberrors.FileSystem("create directory", s.dir, err)
	}
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return dberrors.FileSystem("stat", s.path, err)
	}
	return s.WriteAll(codec.Empty)
}

// WriteAll replaces the file contents with data.
//
// The data is written to a temporary file in the same directory which is
// then renamed over the target, so readers see either the old or the new
// contents.
func (s *FileStore) WriteAll(data []byte) error {
	f, err := os.CreateTemp(s.dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return dberrors.FileSystem("create temp file in", s.dir, err)
	}
	tmpPath := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return errors.Join(dberrors.FileSystem("write", tmpPath, err), os.Remove(tmpPath))
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.Join(dberrors.FileSystem("sync", tmpPath, err), os.Remove(tmpPath))
	}
	if err := f.Close(); err != nil {
		return errors.Join(dberrors.FileSystem("close", tmpPath, err), os.Remove(tmpPath))
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil { //nolint:gosec // G302: database files are world readable like the rest of the data dir
		return errors.Join(dberrors.FileSystem("chmod", tmpPath, err), os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return errors.Join(dberrors.FileSystem("rename to", s.path, err), os.Remove(tmpPath))
	}
	return nil
}

// ReadAll returns the full file contents.
func (s *FileStore) ReadAll() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, dberrors.FileSystem("read", s.path, err)
	}
	return data, nil
}
