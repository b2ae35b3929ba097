package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"verzek/cmd/security/token"
)

const (
	redisKeyPrefix   = "verzek:tokens:"
	redisAADPrefix   = "verzek.tokenstore.redis.v1:"
	redisMaxAttempts = 3
)

// RedisStore keeps the sealed pair under one key per installation.
// Several client processes of the same installation share it.
type RedisStore struct {
	client *redis.Client
	key    string
	sealer sealer
}

// NewRedisStore builds a store namespaced by installationID.
// The installation UUID doubles as the key-derivation salt.
func NewRedisStore(client *redis.Client, installationID uuid.UUID, secret []byte, kdf token.KDFParams) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("tokenstore: nil redis client")
	}
	if installationID == uuid.Nil {
		return nil, errors.New("tokenstore: installation id is required")
	}
	if len(secret) == 0 {
		return nil, token.ErrKeyMissing
	}

	id := installationID.String()
	return &RedisStore{
		client: client,
		key:    redisKeyPrefix + id,
		sealer: newSealer(secret, installationID[:], kdf, redisAADPrefix+id),
	}, nil
}

// Key returns the Redis key holding the sealed pair.
func (s *RedisStore) Key() string { return s.key }

func (s *RedisStore) Load(ctx context.Context) (Pair, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Pair{}, ErrNotFound
	}
	if err != nil {
		return Pair{}, fmt.Errorf("redis get tokens: %w", err)
	}
	return s.sealer.open(raw)
}

func (s *RedisStore) Save(ctx context.Context, p Pair) error {
	if !p.Complete() {
		return ErrInvalidPair
	}
	sealed, err := s.sealer.seal(p)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, sealed, 0).Err(); err != nil {
		return fmt.Errorf("redis set tokens: %w", err)
	}
	return nil
}

// SetAccess runs an optimistic WATCH/MULTI update so a concurrent Clear
// from another process is never overwritten with a half pair.
func (s *RedisStore) SetAccess(ctx context.Context, access string) error {
	update := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, s.key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNoTokens
		}
		if err != nil {
			return fmt.Errorf("redis get tokens: %w", err)
		}

		p, err := s.sealer.open(raw)
		if err != nil {
			return err
		}
		p.AccessToken = access
		if !p.Complete() {
			return ErrInvalidPair
		}

		sealed, err := s.sealer.seal(p)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, sealed, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < redisMaxAttempts; attempt++ {
		err := s.client.Watch(ctx, update, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis set access token: %w", redis.TxFailedErr)
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del tokens: %w", err)
	}
	return nil
}
