package filedb

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/maruel/ksid"
)

// IDPrefix starts every generated document identifier.
const IDPrefix = "_"

// maxIDAttempts bounds the number of candidates tried before giving up on a
// collection whose identifier space is saturated.
const maxIDAttempts = 64

// IDGenerator returns a new candidate document identifier.
//
// Candidates are checked by the Collection against every identifier it has
// ever held, so a generator only needs to be random or monotonic, not unique.
type IDGenerator func() (string, error)

// RandomHexID returns "_" followed by 8 lowercase hex characters drawn from
// 4 random bytes.
func RandomHexID() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return IDPrefix + hex.EncodeToString(b[:]), nil
}

// KSIDGenerator returns "_" followed by a time-sortable ksid.
//
// Identifiers generated within a process are monotonic, so they sort in
// insertion order.
func KSIDGenerator() (string, error) {
	return IDPrefix + ksid.NewID().String(), nil
}
