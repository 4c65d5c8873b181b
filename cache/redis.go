package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clausewise-backend/models"

	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "clausewise:session:"

// RedisOptions configures the Redis session store.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore is a SessionStore backed by Redis. Every write refreshes the
// session TTL.
type RedisStore struct {
	inner *redis.Client
	ttl   time.Duration
}

// NewRedisStore connects and pings the server.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	addr := opts.Addr
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{inner: client, ttl: opts.TTL}, nil
}

func analysisKey(sessionID string) string { return keyPrefix + sessionID + ":analysis" }
func messagesKey(sessionID string) string { return keyPrefix + sessionID + ":messages" }

func (s *RedisStore) SaveAnalysis(ctx context.Context, sessionID string, analysis *models.DocumentAnalysis) error {
	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	_, err = s.inner.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, analysisKey(sessionID), data, s.ttl)
		if s.ttl > 0 {
			p.Expire(ctx, messagesKey(sessionID), s.ttl)
		}
		return nil
	})
	return err
}

func (s *RedisStore) LatestAnalysis(ctx context.Context, sessionID string) (*models.DocumentAnalysis, error) {
	data, err := s.inner.Get(ctx, analysisKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var a models.DocumentAnalysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &a, nil
}

func (s *RedisStore) AppendMessages(ctx context.Context, sessionID string, msgs ...models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		values = append(values, data)
	}
	_, err := s.inner.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, messagesKey(sessionID), values...)
		if s.ttl > 0 {
			p.Expire(ctx, messagesKey(sessionID), s.ttl)
			p.Expire(ctx, analysisKey(sessionID), s.ttl)
		}
		return nil
	})
	return err
}

func (s *RedisStore) Conversation(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	raw, err := s.inner.LRange(ctx, messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	msgs := make([]models.ChatMessage, 0, len(raw))
	for _, r := range raw {
		var m models.ChatMessage
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.inner.Del(ctx, analysisKey(sessionID), messagesKey(sessionID)).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	if s == nil || s.inner == nil {
		return nil
	}
	return s.inner.Close()
}
