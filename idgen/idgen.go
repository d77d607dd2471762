// Package idgen generates the identifiers carried by documents, mutation
// batches, snapshots and tool requests.
package idgen

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable, so batch ids order like their flush time.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// NanoID returns a Generator that produces base-36 IDs of the given length.
func NanoID(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		for i := range buf {
			buf[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(buf)
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

var (
	// Document names a loaded tree.
	Document Generator = UUIDv7()
	// Batch names a flushed mutation batch.
	Batch Generator = Prefixed("mb_", UUIDv7())
	// Snapshot names a serialised document snapshot.
	Snapshot Generator = Prefixed("snap_", UUIDv7())
	// Request tags a tool call in logs.
	Request Generator = Prefixed("req_", NanoID(12))
)

// New produces a document ID.
func New() string {
	return Document()
}
