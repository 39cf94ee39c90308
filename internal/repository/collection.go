package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"recovr/internal/kvstore"
)

// Collection names in the key/value store.
const (
	ClientsCollection  = "clients"
	PaymentsCollection = "payments"
	UsersCollection    = "users"
	ChatCollection     = "chat_messages"
)

// ErrNotFound is returned by Find* lookups that match nothing.
var ErrNotFound = errors.New("record not found")

func decode[T any](name string, data []byte) ([]T, error) {
	if len(data) == 0 {
		return []T{}, nil
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

func encode[T any](name string, records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return data, nil
}

func load[T any](ctx context.Context, store kvstore.Store, name string) ([]T, error) {
	data, err := store.ReadCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	return decode[T](name, data)
}

func loadTx[T any](txn kvstore.Txn, name string) ([]T, error) {
	data, err := txn.ReadCollection(name)
	if err != nil {
		return nil, err
	}
	return decode[T](name, data)
}

func saveTx[T any](txn kvstore.Txn, name string, records []T) error {
	data, err := encode(name, records)
	if err != nil {
		return err
	}
	return txn.WriteCollection(name, data)
}
