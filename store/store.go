// Package store is a namespaced JSON document store used for bot
// bookkeeping (processed mentions, known followers, and similar records).
// Documents live under "namespace:id" keys in a redis-style backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Document is a JSON-compatible record. Callers must tolerate absent
// optional fields; there is no schema versioning.
type Document = map[string]any

var (
	// ErrNotFound is returned by Get and Merge when no record exists.
	ErrNotFound = errors.New("store: record not found")
)

type Store interface {
	// Set writes the whole document, replacing any existing record.
	Set(ctx context.Context, namespace, id string, doc Document) error
	// Get returns the stored document, or ErrNotFound.
	Get(ctx context.Context, namespace, id string) (Document, error)
	// Merge applies a shallow key-wise overwrite of partial onto the
	// existing document and writes the result back. Returns ErrNotFound if
	// no record exists (merge is not an upsert). The read-modify-write is
	// NOT atomic; concurrent writers to the same key can lose updates, so
	// a single writer per namespace is assumed.
	Merge(ctx context.Context, namespace, id string, partial Document) error
	Exists(ctx context.Context, namespace, id string) (bool, error)
	// Delete is idempotent; deleting an absent record is not an error.
	Delete(ctx context.Context, namespace, id string) error
	// ListIDs enumerates every record id in the namespace, resuming
	// cursor-based scans until the backend reports completion.
	ListIDs(ctx context.Context, namespace string) ([]string, error)
	// ListAll fetches every document in the namespace. Records deleted
	// between the scan and the fetch are skipped, not an error.
	ListAll(ctx context.Context, namespace string) ([]Document, error)
}

const keySeparator = ":"

// recordKey joins namespace and id into the physical key. Neither part may
// contain the separator: enumeration splits on it to recover the id.
func recordKey(namespace, id string) (string, error) {
	if namespace == "" || strings.Contains(namespace, keySeparator) {
		return "", fmt.Errorf("store: invalid namespace %q", namespace)
	}
	if id == "" || strings.Contains(id, keySeparator) {
		return "", fmt.Errorf("store: invalid record id %q", id)
	}
	return namespace + keySeparator + id, nil
}

func idFromKey(namespace, key string) string {
	return strings.TrimPrefix(key, namespace+keySeparator)
}
