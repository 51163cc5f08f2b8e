// Package filedb provides a minimal embedded document store backed by a
// single JSON file.
//
// # Overview
//
// A [Store] is the handle for one database file. It owns a set of named
// [Collection] values, each holding schema-free [Document] values keyed by a
// generated identifier stored in the reserved "id" field.
//
// Collections only mutate memory. Durability is explicit: [Store.Commit]
// writes every collection, [Store.Load] replaces every collection with the
// file contents. [Store.CreateCollection] is the one mutation that commits
// on its own; [Store.DropCollection] does not.
//
// # Identifiers
//
// Identifiers default to "_" followed by 8 lowercase hex characters
// ([RandomHexID]). A collection never hands out an identifier it held
// before, including ones of deleted documents, and retries the generator on
// collision.
//
// # Concurrency
//
// Store and Collection are safe for concurrent use within one process.
// There is no locking across processes. [Store.Watch] can follow changes
// made by another process that rewrites the file.
//
// # File Format
//
// One JSON object mapping collection names to objects mapping identifiers
// to documents. See package codec.
package filedb
