// Package codec converts the in-memory collections graph to and from its
// durable JSON form.
//
// The durable form is a single JSON object mapping collection names to
// objects that map document identifiers to document objects:
//
//	{"orders":{"_0a1b2c3d":{"id":"_0a1b2c3d","item":"pen"}}}
//
// Encoding is canonical: object keys are sorted, so equal graphs always
// produce identical bytes.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Collections is the plain representation of a store: collection name to
// document identifier to document fields.
type Collections map[string]map[string]map[string]any

// Empty is the serialized form of a store without collections.
var Empty = []byte("{}")

// ParseError reports malformed durable content.
type ParseError struct {
	// Offset is the byte offset where the problem was detected, or -1 if unknown.
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("malformed content at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("malformed content: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Encode serializes c. A nil c encodes as an empty object.
func Encode(c Collections) ([]byte, error) {
	if c == nil {
		return bytes.Clone(Empty), nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode collections: %w", err)
	}
	return data, nil
}

// Decode parses data produced by Encode.
//
// Numbers are kept as json.Number so integers survive a round trip
// unchanged. A null collection decodes as an empty collection; a null
// document is rejected. Any failure is returned as a *ParseError.
func Decode(data []byte) (Collections, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var c Collections
	if err := dec.Decode(&c); err != nil {
		return nil, newParseError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Offset: dec.InputOffset(), Err: errors.New("trailing data after top-level object")}
	}
	if c == nil {
		return nil, &ParseError{Offset: 0, Err: errors.New("top-level value is null, want an object")}
	}
	for name, docs := range c {
		if docs == nil {
			c[name] = map[string]map[string]any{}
			continue
		}
		for id, doc := range docs {
			if doc == nil {
				return nil, &ParseError{Offset: -1, Err: fmt.Errorf("document %q in collection %q is null", id, name)}
			}
		}
	}
	return c, nil
}

// Normalize returns doc in the form Decode would produce for it: a deep
// copy where numbers are json.Number, nested objects are map[string]any and
// arrays are []any. A nil doc normalizes to an empty map.
func Normalize(doc map[string]any) (map[string]any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func newParseError(err error) *ParseError {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &ParseError{Offset: syntaxErr.Offset, Err: err}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ParseError{Offset: typeErr.Offset, Err: err}
	}
	if errors.Is(err, io.EOF) {
		return &ParseError{Offset: 0, Err: errors.New("empty content")}
	}
	return &ParseError{Offset: -1, Err: err}
}
