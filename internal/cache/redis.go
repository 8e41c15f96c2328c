// Package cache provides a Redis read-through cache in front of the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/capitalize-ai/localchat/internal/model"
	"github.com/capitalize-ai/localchat/internal/store"
	"github.com/capitalize-ai/localchat/pkg/logger"
	"github.com/capitalize-ai/localchat/pkg/metrics"
)

// ConversationKeyPrefix prefixes cached conversation keys.
const ConversationKeyPrefix = "conv:"

// DefaultTTL applies when no TTL is configured.
const DefaultTTL = 30 * time.Minute

var errMiss = errors.New("cache: miss")

// KV is the subset of a key/value cache the store decorator needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// RedisKV implements KV on a go-redis client.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV connects to redisURL and verifies the connection.
func NewRedisKV(ctx context.Context, redisURL string) (*RedisKV, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisKV{client: client}, nil
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errMiss
	}
	return data, err
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}

// Store wraps a store.Store and caches conversation lookups. Conversations
// are immutable once created, so entries are never invalidated; they expire
// after the TTL. Cache failures fall through to the underlying store.
type Store struct {
	store.Store
	kv     KV
	ttl    time.Duration
	logger *logger.Logger
}

// NewStore returns a caching decorator around next.
func NewStore(next store.Store, kv KV, ttl time.Duration, log *logger.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{Store: next, kv: kv, ttl: ttl, logger: log}
}

// CreateConversation writes through and primes the cache.
func (s *Store) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	if err := s.Store.CreateConversation(ctx, conv); err != nil {
		return err
	}
	s.put(ctx, conv)
	return nil
}

// GetConversation serves from the cache when possible.
func (s *Store) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	key := ConversationKeyPrefix + id

	data, err := s.kv.Get(ctx, key)
	switch {
	case err == nil:
		var conv model.Conversation
		if err := json.Unmarshal(data, &conv); err == nil {
			metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
			return &conv, nil
		}
		s.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	case errors.Is(err, errMiss):
	default:
		s.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
	}
	metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()

	conv, err := s.Store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	s.put(ctx, conv)
	return conv, nil
}

// Close closes the cache and then the underlying store.
func (s *Store) Close() error {
	if err := s.kv.Close(); err != nil {
		s.logger.Warn("failed to close cache", zap.Error(err))
	}
	return s.Store.Close()
}

func (s *Store) put(ctx context.Context, conv *model.Conversation) {
	// Only the header is cached; messages are always read from the store.
	header := *conv
	header.Messages = nil

	data, err := json.Marshal(&header)
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, ConversationKeyPrefix+conv.ID, data, s.ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("conversation_id", conv.ID), zap.Error(err))
	}
}
