package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	goredis "github.com/redis/go-redis/v9"
)

const (
	DefaultRedisPrefix = "lostcat:session:"
	redisUpdateRetries = 5
)

// RedisStore implements Store with one CBOR-encoded key per session. Redis
// expires keys at the session's ExpiresAt.
type RedisStore struct {
	rdb    goredis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed store. An empty prefix uses DefaultRedisPrefix.
func NewRedisStore(rdb goredis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) ttl(sess *Session) (time.Duration, error) {
	if sess.ExpiresAt.IsZero() {
		return 0, nil
	}
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return 0, ErrNotFound
	}
	return ttl, nil
}

func (s *RedisStore) Create(ctx context.Context, sess *Session) error {
	raw, err := cbor.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	ttl, err := s.ttl(sess)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, s.key(sess.ID), raw, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return s.decode(raw)
}

func (s *RedisStore) decode(raw []byte) (*Session, error) {
	var sess Session
	if err := cbor.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if sess.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Update runs fn inside a WATCH/MULTI transaction and retries when another
// writer touched the key first.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	key := s.key(id)
	var result *Session

	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("redis get: %w", err)
		}
		sess, err := s.decode(raw)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		out, err := cbor.Marshal(sess)
		if err != nil {
			return fmt.Errorf("encoding session: %w", err)
		}
		ttl, err := s.ttl(sess)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, out, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = sess
		return nil
	}

	for range redisUpdateRetries {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, ErrConflict
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.rdb.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Compile-time interface check
var _ Store = (*RedisStore)(nil)

// Ping reports whether Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
