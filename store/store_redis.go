package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	Client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.Background()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisStore{Client: rdb}, nil
}

func (s *RedisStore) Set(ctx context.Context, namespace, id string, doc Document) error {
	key, err := recordKey(namespace, id)
	if err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, key, b, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, namespace, id string) (Document, error) {
	key, err := recordKey(namespace, id)
	if err != nil {
		return nil, err
	}
	val, err := s.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *RedisStore) Merge(ctx context.Context, namespace, id string, partial Document) error {
	// read-modify-write with no WATCH; see Store.Merge for the single-writer
	// assumption
	current, err := s.Get(ctx, namespace, id)
	if err != nil {
		return err
	}
	for k, v := range partial {
		current[k] = v
	}
	return s.Set(ctx, namespace, id, current)
}

func (s *RedisStore) Exists(ctx context.Context, namespace, id string) (bool, error) {
	key, err := recordKey(namespace, id)
	if err != nil {
		return false, err
	}
	n, err := s.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n >= 1, nil
}

func (s *RedisStore) Delete(ctx context.Context, namespace, id string) error {
	key, err := recordKey(namespace, id)
	if err != nil {
		return err
	}
	return s.Client.Del(ctx, key).Err()
}

func (s *RedisStore) ListIDs(ctx context.Context, namespace string) ([]string, error) {
	if _, err := recordKey(namespace, "x"); err != nil {
		return nil, err
	}
	var ids []string
	var cursor uint64
	// a single SCAN call is not guaranteed to cover the keyspace; resume
	// until the cursor returns to zero
	for {
		keys, next, err := s.Client.Scan(ctx, cursor, namespace+keySeparator+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			ids = append(ids, idFromKey(namespace, k))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}

func (s *RedisStore) ListAll(ctx context.Context, namespace string) ([]Document, error) {
	ids, err := s.ListIDs(ctx, namespace)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.Get(ctx, namespace, id)
		if errors.Is(err, ErrNotFound) {
			// deleted since the scan; skip
			continue
		} else if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
