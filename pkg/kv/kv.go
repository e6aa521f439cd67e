// Package kv provides the string-keyed persistence layer used for
// conversation history and client settings. Keys are hierarchical paths
// (e.g. ["history", "turn", "1700000000"]) encoded with a '/' separator.
//
// The Badger-backed implementation persists across runs; the in-memory
// implementation backs tests.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: not found")

// Separator joins key segments in the encoded form. Segments must not
// contain it.
const Separator = "/"

// Key is a hierarchical path as a slice of segments.
type Key []string

// String returns the encoded form of the key.
func (k Key) String() string {
	return strings.Join(k, Separator)
}

// Child returns a new key with extra segments appended.
func (k Key) Child(segments ...string) Key {
	out := make(Key, 0, len(k)+len(segments))
	out = append(out, k...)
	return append(out, segments...)
}

// parseKey decodes an encoded key back into segments.
func parseKey(s string) Key {
	return Key(strings.Split(s, Separator))
}

// Entry is one key-value pair yielded by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with ordered prefix listing.
//
// List iterates entries whose key is strictly under the given prefix, in
// lexicographic (and therefore, for timestamp-suffixed keys,
// chronological) order.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	Set(ctx context.Context, key Key, value []byte) error
	Delete(ctx context.Context, key Key) error
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// DeletePrefix atomically removes every entry under the prefix.
	DeletePrefix(ctx context.Context, prefix Key) error

	Close() error
}

// listPrefix returns the encoded byte prefix for List/DeletePrefix. The
// trailing separator keeps prefix ["a","b"] from matching key ["a","bc"].
func listPrefix(prefix Key) []byte {
	if len(prefix) == 0 {
		return nil
	}
	return []byte(prefix.String() + Separator)
}
