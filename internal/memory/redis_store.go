package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storyteller-server/internal/models"
)

// Compile-time check
var _ SemanticStore = (*redisSemanticStore)(nil)

// redisSemanticStore хранит документы контекста в Redis: значение по
// прямому ключу с TTL плюс SCAN-поиск по префиксу как запасной путь.
type redisSemanticStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSemanticStore создает SemanticStore поверх Redis.
func NewRedisSemanticStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) SemanticStore {
	return &redisSemanticStore{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisSemanticStore"),
	}
}

func (s *redisSemanticStore) Put(ctx context.Context, key string, doc string) error {
	s.logger.Debug("Storing document in Redis",
		zap.String("key", key),
		zap.Int("doc_bytes", len(doc)))
	if err := s.client.Set(ctx, key, doc, s.ttl).Err(); err != nil {
		s.logger.Error("Failed to store document in redis", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to store document in redis: %w", err)
	}
	return nil
}

func (s *redisSemanticStore) Get(ctx context.Context, key string) (string, error) {
	doc, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			s.logger.Debug("Document not found in Redis", zap.String("key", key))
			return "", models.ErrContextNotFound
		}
		s.logger.Error("Failed to get document from redis", zap.Error(err), zap.String("key", key))
		return "", fmt.Errorf("failed to get document from redis: %w", err)
	}
	return doc, nil
}

// SearchByPrefix возвращает документы, ключи которых начинаются с prefix и
// содержат substr. Запасной путь, когда прямой ключ утерян.
func (s *redisSemanticStore) SearchByPrefix(ctx context.Context, prefix, substr string, limit int) ([]string, error) {
	var docs []string
	iter := s.client.Scan(ctx, 0, prefix+"*", int64(limit*10)).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if substr != "" && !strings.Contains(key, substr) {
			continue
		}
		doc, err := s.client.Get(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Ключ истек между SCAN и GET.
			}
			s.logger.Error("Failed to get document during search", zap.Error(err), zap.String("key", key))
			return nil, fmt.Errorf("failed to get document during search: %w", err)
		}
		docs = append(docs, doc)
		if len(docs) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Error("Redis scan failed", zap.Error(err), zap.String("prefix", prefix))
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return docs, nil
}

func (s *redisSemanticStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.Error("Failed to delete document from redis", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to delete document from redis: %w", err)
	}
	return nil
}
