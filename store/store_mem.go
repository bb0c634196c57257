package store

import (
	"context"
	"encoding/json"
	"sort"
)

// In-memory store for development and tests. Not safe for concurrent use.
type MemStore struct {
	// marshaled documents by physical key, matching the redis layout
	Data map[string]string
	// when positive, ListIDs returns keys in pages of this size to mimic a
	// backend that needs multiple scan calls
	ScanPageSize int
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{Data: make(map[string]string)}
}

func (s *MemStore) Set(ctx context.Context, namespace, id string, doc Document) error {
	key, err := recordKey(namespace, id)
	if err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.Data[key] = string(b)
	return nil
}

func (s *MemStore) Get(ctx context.Context, namespace, id string) (Document, error) {
	key, err := recordKey(namespace, id)
	if err != nil {
		return nil, err
	}
	val, ok := s.Data[key]
	if !ok {
		return nil, ErrNotFound
	}
	var doc Document
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *MemStore) Merge(ctx context.Context, namespace, id string, partial Document) error {
	current, err := s.Get(ctx, namespace, id)
	if err != nil {
		return err
	}
	for k, v := range partial {
		current[k] = v
	}
	return s.Set(ctx, namespace, id, current)
}

func (s *MemStore) Exists(ctx context.Context, namespace, id string) (bool, error) {
	key, err := recordKey(namespace, id)
	if err != nil {
		return false, err
	}
	_, ok := s.Data[key]
	return ok, nil
}

func (s *MemStore) Delete(ctx context.Context, namespace, id string) error {
	key, err := recordKey(namespace, id)
	if err != nil {
		return err
	}
	delete(s.Data, key)
	return nil
}

// scanPage returns one page of sorted ids starting at cursor, plus the cursor
// for the next call. A zero next cursor means the scan is complete, matching
// redis SCAN semantics.
func (s *MemStore) scanPage(namespace string, cursor int) ([]string, int) {
	prefix := namespace + keySeparator
	var all []string
	for k := range s.Data {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			all = append(all, idFromKey(namespace, k))
		}
	}
	sort.Strings(all)

	if s.ScanPageSize <= 0 || cursor >= len(all) {
		return all[cursor:], 0
	}
	end := cursor + s.ScanPageSize
	if end >= len(all) {
		return all[cursor:], 0
	}
	return all[cursor:end], end
}

func (s *MemStore) ListIDs(ctx context.Context, namespace string) ([]string, error) {
	if _, err := recordKey(namespace, "x"); err != nil {
		return nil, err
	}
	// accumulate page by page until the backend reports an exhausted cursor
	var ids []string
	cursor := 0
	for {
		page, next := s.scanPage(namespace, cursor)
		ids = append(ids, page...)
		if next == 0 {
			break
		}
		cursor = next
	}
	return ids, nil
}

func (s *MemStore) ListAll(ctx context.Context, namespace string) ([]Document, error) {
	ids, err := s.ListIDs(ctx, namespace)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.Get(ctx, namespace, id)
		if err == ErrNotFound {
			continue
		} else if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
