package filedb

import (
	"fmt"
	"sync"

	"github.com/maruel/filedb/internal/codec"
	dberrors "github.com/maruel/filedb/internal/errors"
)

// IDField is the reserved document field holding the document identifier.
const IDField = "id"

// UpdateField is the field under which UpdateByID nests the update payload.
const UpdateField = "data"

// Document is a schema-free record. The "id" field is reserved and assigned
// on insertion.
type Document map[string]any

// ID returns the document identifier, or "" if unset.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Clone returns a deep copy of the document. Nested objects and arrays are
// copied; other values are shared.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneMap(d))
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Document:
		return Document(cloneMap(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Collection is a named, in-memory set of documents.
//
// Collection only mutates memory; the owning Store persists it on Commit.
// It is safe for concurrent use.
type Collection struct {
	name  string
	newID IDGenerator

	mu        sync.RWMutex
	documents map[string]Document
	// inserted records every insertion in order. It is never pruned, deleted
	// documents stay in it.
	inserted []Document
	// issued holds every identifier this collection ever held, so none is
	// handed out twice.
	issued map[string]struct{}
}

func newCollection(name string, newID IDGenerator) *Collection {
	return &Collection{
		name:      name,
		newID:     newID,
		documents: map[string]Document{},
		issued:    map[string]struct{}{},
	}
}

// collectionFromDocuments wraps decoded documents. Each document's "id"
// must match its key; a missing id is filled in from the key.
func collectionFromDocuments(name string, docs map[string]map[string]any, newID IDGenerator) (*Collection, error) {
	c := newCollection(name, newID)
	for key, raw := range docs {
		doc := Document(raw)
		switch v, ok := doc[IDField]; {
		case !ok:
			doc[IDField] = key
		case v != key:
			return nil, fmt.Errorf("collection %q: document %q has id %v", name, key, v)
		}
		c.documents[key] = doc
		c.issued[key] = struct{}{}
	}
	return c, nil
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Len returns the number of stored documents.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.documents)
}

// Insert assigns a new identifier to a copy of doc, stores it and records it
// in the insertion history. It returns the stored document.
//
// The copy holds doc in its JSON form, as Load would return it: numbers
// become json.Number. doc itself is not modified; any "id" it carries is
// overwritten in the copy. Values that cannot be encoded as JSON are
// rejected.
func (c *Collection) Insert(doc Document) (Document, error) {
	normalized, err := codec.Normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", c.name, err)
	}
	stored := Document(normalized)
	c.mu.Lock()
	defer c.mu.Unlock()
	id, err := c.nextID()
	if err != nil {
		return nil, err
	}
	stored[IDField] = id
	c.documents[id] = stored
	c.issued[id] = struct{}{}
	c.inserted = append(c.inserted, stored.Clone())
	return stored.Clone(), nil
}

func (c *Collection) nextID() (string, error) {
	for range maxIDAttempts {
		id, err := c.newID()
		if err != nil {
			return "", err
		}
		if _, ok := c.issued[id]; !ok {
			return id, nil
		}
	}
	return "", dberrors.New(dberrors.ErrIDExhausted, fmt.Sprintf("collection %q: no unused identifier after %d attempts", c.name, maxIDAttempts))
}

// FindAll returns a copy of all documents keyed by identifier.
func (c *Collection) FindAll() map[string]Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Document, len(c.documents))
	for id, doc := range c.documents {
		out[id] = doc.Clone()
	}
	return out
}

// FindByID returns a copy of the document with the given id.
func (c *Collection) FindByID(id string) (Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.documents[id]
	if !ok {
		return nil, false
	}
	return doc.Clone(), true
}

// UpdateByID returns what the document with the given id looks like with
// data nested under the "data" field. Other fields, including "id", are
// carried forward.
//
// It is a preview: the stored document is left unchanged and nothing is
// persisted.
func (c *Collection) UpdateByID(id string, data any) (Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.documents[id]
	if !ok {
		return nil, false
	}
	updated := doc.Clone()
	updated[IDField] = id
	updated[UpdateField] = data
	return updated, true
}

// DeleteByID removes the document with the given id. The insertion history
// keeps its record.
func (c *Collection) DeleteByID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.documents, id)
}

// History returns copies of every document inserted in this process, in
// insertion order, including deleted ones.
func (c *Collection) History() []Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Document, len(c.inserted))
	for i, doc := range c.inserted {
		out[i] = doc.Clone()
	}
	return out
}

// Documents returns the plain mapping used for serialization.
func (c *Collection) Documents() map[string]map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]map[string]any, len(c.documents))
	for id, doc := range c.documents {
		out[id] = doc.Clone()
	}
	return out
}
