// Package backup compares a local snapshot with an incoming one, tracks which
// of the resulting changes the user approved, and applies exactly those
// changes to the store in one transaction.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lherron/planbak/internal/domain"
)

// UpdatedPair holds both sides of a record that exists in both snapshots with
// different values.
type UpdatedPair[T any] struct {
	Local    T `json:"local"`
	Incoming T `json:"incoming"`
}

// DiffResult partitions one collection into added, updated and deleted
// records. Unchanged records appear in none of the lists.
type DiffResult[T any] struct {
	Added   []T              `json:"added"`
	Updated []UpdatedPair[T] `json:"updated"`
	Deleted []T              `json:"deleted"`
}

// IsEmpty reports whether the two collections were identical.
func (d DiffResult[T]) IsEmpty() bool {
	return d.Len() == 0
}

// Len returns the total number of changed records.
func (d DiffResult[T]) Len() int {
	return len(d.Added) + len(d.Updated) + len(d.Deleted)
}

// Diff compares two collections of records by RecordID using full structural
// equality.
func Diff[T domain.Record](local, incoming []T) DiffResult[T] {
	return DiffFunc(local, incoming, func(r T) string { return r.RecordID() }, Equal[T])
}

// DiffFunc is Diff with explicit id and equality functions. Each list of the
// result is sorted by id.
func DiffFunc[T any](local, incoming []T, id func(T) string, equal func(a, b T) bool) DiffResult[T] {
	localByID := make(map[string]T, len(local))
	for _, rec := range local {
		localByID[id(rec)] = rec
	}
	incomingByID := make(map[string]T, len(incoming))
	for _, rec := range incoming {
		incomingByID[id(rec)] = rec
	}

	// Collect all keys
	allKeys := make(map[string]bool, len(localByID)+len(incomingByID))
	for k := range localByID {
		allKeys[k] = true
	}
	for k := range incomingByID {
		allKeys[k] = true
	}

	// Sort keys for deterministic output
	keys := make([]string, 0, len(allKeys))
	for k := range allKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var result DiffResult[T]
	for _, key := range keys {
		localRec, inLocal := localByID[key]
		incomingRec, inIncoming := incomingByID[key]

		switch {
		case !inLocal && inIncoming:
			result.Added = append(result.Added, incomingRec)
		case inLocal && !inIncoming:
			result.Deleted = append(result.Deleted, localRec)
		case !equal(localRec, incomingRec):
			result.Updated = append(result.Updated, UpdatedPair[T]{Local: localRec, Incoming: incomingRec})
		}
	}

	return result
}

var replacementEscape = []byte(`\ufffd`)

// Equal compares two values by JSON encoding, which covers nested structures
// and slices. Record types always encode, so a
// failure is a programming error and panics.
//
// The encoder writes invalid UTF-8 as \ufffd, so encodings holding that
// escape are confirmed on the raw values.
func Equal[T any](a, b T) bool {
	aJSON, err := json.Marshal(a)
	if err != nil {
		panic(fmt.Sprintf("backup: cannot encode %T: %v", a, err))
	}
	bJSON, err := json.Marshal(b)
	if err != nil {
		panic(fmt.Sprintf("backup: cannot encode %T: %v", b, err))
	}
	if !bytes.Equal(aJSON, bJSON) {
		return false
	}
	if bytes.Contains(aJSON, replacementEscape) {
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
	return true
}
