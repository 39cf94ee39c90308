// Package kvstore is the persistence substrate: named collections, each
// holding one JSON document (an array of records). It knows nothing about
// the records' schema; callers enforce every invariant.
//
// Update is the only way to change more than one collection at once. All
// writes staged inside an Update become visible together or not at all.
// View is its read-only counterpart: every collection it reads comes from
// the same committed state.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrConflict is returned by Update when concurrent writers kept
	// invalidating the optimistic read set until retries ran out.
	ErrConflict = errors.New("kvstore: concurrent update conflict")

	// ErrUndeclared is returned when a Txn touches a collection that was not
	// listed in the Update call.
	ErrUndeclared = errors.New("kvstore: collection not declared in update")

	// ErrReadOnly is returned when a View callback tries to write.
	ErrReadOnly = errors.New("kvstore: write inside read-only view")
)

// Txn is handed to the Update callback. Reads see the committed state plus
// the callback's own staged writes.
type Txn interface {
	ReadCollection(name string) ([]byte, error)
	WriteCollection(name string, data []byte) error
}

// Store reads and writes whole collections. A missing collection reads as
// nil, which callers treat as an empty array.
type Store interface {
	ReadCollection(ctx context.Context, name string) ([]byte, error)
	WriteCollection(ctx context.Context, name string, data []byte) error
	// Update runs fn against the listed collections and commits every write
	// fn staged in one step. fn may run more than once when a backend
	// retries optimistically, so it must not have side effects of its own.
	Update(ctx context.Context, collections []string, fn func(txn Txn) error) error
	// View runs fn against one consistent snapshot of the listed
	// collections. Writes fail with ErrReadOnly.
	View(ctx context.Context, collections []string, fn func(txn Txn) error) error
	Ping(ctx context.Context) error
}

// stagedTxn buffers writes until the backend commits them.
type stagedTxn struct {
	declared map[string]bool
	read     func(name string) ([]byte, error)
	writes   map[string][]byte
	readOnly bool
}

func newStagedTxn(collections []string, read func(name string) ([]byte, error)) *stagedTxn {
	declared := make(map[string]bool, len(collections))
	for _, c := range collections {
		declared[c] = true
	}
	return &stagedTxn{declared: declared, read: read, writes: make(map[string][]byte)}
}

func (t *stagedTxn) ReadCollection(name string) ([]byte, error) {
	if !t.declared[name] {
		return nil, fmt.Errorf("%w: %s", ErrUndeclared, name)
	}
	if data, ok := t.writes[name]; ok {
		return cloneBytes(data), nil
	}
	return t.read(name)
}

func newViewTxn(collections []string, read func(name string) ([]byte, error)) *stagedTxn {
	t := newStagedTxn(collections, read)
	t.readOnly = true
	return t
}

func (t *stagedTxn) WriteCollection(name string, data []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if !t.declared[name] {
		return fmt.Errorf("%w: %s", ErrUndeclared, name)
	}
	t.writes[name] = cloneBytes(data)
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
