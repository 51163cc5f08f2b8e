package filedb

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/maruel/filedb/internal/codec"
	dberrors "github.com/maruel/filedb/internal/errors"
	"github.com/maruel/filedb/internal/storage"
)

const (
	// DefaultDirectory is the directory holding database files when
	// Options.Directory is empty.
	DefaultDirectory = "databases"
	// DefaultExtension is the database file suffix when Options.Extension is empty.
	DefaultExtension = ".json"
	// DefaultWatchInterval is the minimum delay between two reloads in Watch.
	DefaultWatchInterval = 100 * time.Millisecond
)

// Options configures a Store. The zero value selects the defaults.
type Options struct {
	// Directory holds the database file. Defaults to DefaultDirectory.
	Directory string
	// Extension is the database file suffix. A leading dot is added if
	// missing. Defaults to DefaultExtension.
	Extension string
	// NewID generates document identifiers. Defaults to RandomHexID.
	NewID IDGenerator
	// Logger receives debug records for load and commit cycles. Defaults to
	// slog.Default().
	Logger *slog.Logger
	// WatchInterval throttles reloads in Watch. Defaults to DefaultWatchInterval.
	WatchInterval time.Duration
}

// Store is the handle for one database file. It owns all collections and
// drives load and commit cycles.
//
// Store methods are safe for concurrent use within one process. Multiple
// processes writing the same file race with each other.
type Store struct {
	name          string
	files         *storage.FileStore
	newID         IDGenerator
	logger        *slog.Logger
	watchInterval time.Duration

	mu          sync.Mutex
	collections map[string]*Collection
	// lastSync is the content last written or read, used by Watch to skip
	// change notifications that carry nothing new.
	lastSync []byte
}

// New returns a Store for the database name. It does no I/O; call
// Initialize before Load or Commit.
func New(name string, opts *Options) (*Store, error) {
	if err := validateName("database", name); err != nil {
		return nil, err
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, dberrors.InvalidName("database", name, "must not contain path elements")
	}
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Directory == "" {
		o.Directory = DefaultDirectory
	}
	switch {
	case o.Extension == "":
		o.Extension = DefaultExtension
	case !strings.HasPrefix(o.Extension, "."):
		o.Extension = "." + o.Extension
	}
	if o.NewID == nil {
		o.NewID = RandomHexID
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.WatchInterval <= 0 {
		o.WatchInterval = DefaultWatchInterval
	}
	files, err := storage.NewFileStore(filepath.Clean(o.Directory), name+o.Extension)
	if err != nil {
		return nil, dberrors.InvalidName("database", name, err.Error())
	}
	return &Store{
		name:          name,
		files:         files,
		newID:         o.NewID,
		logger:        o.Logger.With("db", name),
		watchInterval: o.WatchInterval,
		collections:   map[string]*Collection{},
	}, nil
}

// Open is New followed by Initialize and Load.
func Open(name string, opts *Options) (*Store, error) {
	s, err := New(name, opts)
	if err != nil {
		return nil, err
	}
	if err := s.Initialize(); err != nil {
		return nil, err
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func validateName(kind, name string) error {
	if name == "" {
		return dberrors.InvalidName(kind, name, "must not be empty")
	}
	return nil
}

// Name returns the database name.
func (s *Store) Name() string {
	return s.name
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.files.Path()
}

// Initialize creates the database directory and an empty database file if
// it does not exist yet. Existing contents are left untouched.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.files.Initialize(); err != nil {
		return err
	}
	s.logger.Debug("Initialized database", "path", s.files.Path())
	return nil
}

// Commit writes every collection to the database file.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked()
}

func (s *Store) commitLocked() error {
	c := make(codec.Collections, len(s.collections))
	for name, col := range s.collections {
		c[name] = col.Documents()
	}
	data, err := codec.Encode(c)
	if err != nil {
		return fmt.Errorf("failed to commit %s: %w", s.name, err)
	}
	if err := s.files.WriteAll(data); err != nil {
		return err
	}
	s.lastSync = data
	s.logger.Debug("Committed database", "collections", len(c), "bytes", len(data))
	return nil
}

// Load replaces every in-memory collection with the database file contents.
//
// Collections obtained before Load are detached from the Store afterwards.
// On failure the in-memory state is left unchanged.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.files.ReadAll()
	if err != nil {
		return err
	}
	return s.loadLocked(data)
}

func (s *Store) loadLocked(data []byte) error {
	decoded, err := codec.Decode(data)
	if err != nil {
		return dberrors.Parse(s.files.Path(), err)
	}
	collections := make(map[string]*Collection, len(decoded))
	for name, docs := range decoded {
		col, err := collectionFromDocuments(name, docs, s.newID)
		if err != nil {
			return dberrors.Parse(s.files.Path(), err)
		}
		collections[name] = col
	}
	s.collections = collections
	s.lastSync = data
	s.logger.Debug("Loaded database", "collections", len(collections), "bytes", len(data))
	return nil
}

// Collection returns the named collection.
func (s *Store) Collection(name string) (*Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[name]
	return col, ok
}

// CreateCollection creates an empty collection and commits immediately. It
// is a no-op if the collection already exists.
//
// If the commit fails the collection stays in memory and the error is
// returned.
func (s *Store) CreateCollection(name string) error {
	if err := validateName("collection", name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return nil
	}
	s.collections[name] = newCollection(name, s.newID)
	s.logger.Debug("Created collection", "collection", name)
	if err := s.commitLocked(); err != nil {
		return fmt.Errorf("failed to persist collection %q: %w", name, err)
	}
	return nil
}

// DropCollection removes the named collection from memory. Unlike
// CreateCollection it does not commit; the removal is durable only after
// the next Commit.
func (s *Store) DropCollection(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		delete(s.collections, name)
		s.logger.Debug("Dropped collection", "collection", name)
	}
}

// CollectionNames returns the names of the in-memory collections in
// lexical order, not in creation or file order.
func (s *Store) CollectionNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.collections))
}

// IsNotInitialized reports whether err comes from reading a database file
// that was never initialized.
func IsNotInitialized(err error) bool {
	return dberrors.IsFileSystem(err) && errors.Is(err, fs.ErrNotExist)
}
