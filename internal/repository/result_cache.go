package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wisefido-eegstaging/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrResultNotFound 缓存中没有该记录的分期结果
var ErrResultNotFound = errors.New("staging result not found")

// ResultCache 分期结果 Redis 缓存
//
// Key: <prefix><recording_id>，如 "eegstaging:result:rec-001"，带 TTL。
type ResultCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewResultCache 创建结果缓存
func NewResultCache(client *redis.Client, prefix string, ttlSeconds int, logger *zap.Logger) *ResultCache {
	return &ResultCache{
		client: client,
		prefix: prefix,
		ttl:    time.Duration(ttlSeconds) * time.Second,
		logger: logger,
	}
}

func (c *ResultCache) key(recordingID string) string {
	return c.prefix + recordingID
}

// SaveResult 写入分期结果
func (c *ResultCache) SaveResult(ctx context.Context, result *models.StagingResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal staging result: %w", err)
	}

	if err := c.client.Set(ctx, c.key(result.RecordingID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache staging result: %w", err)
	}

	c.logger.Debug("Cached staging result",
		zap.String("recording_id", result.RecordingID),
		zap.Duration("ttl", c.ttl),
	)

	return nil
}

// GetResult 读取分期结果
func (c *ResultCache) GetResult(ctx context.Context, recordingID string) (*models.StagingResult, error) {
	data, err := c.client.Get(ctx, c.key(recordingID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ErrResultNotFound, recordingID)
		}
		return nil, fmt.Errorf("failed to get staging result: %w", err)
	}

	var result models.StagingResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal staging result: %w", err)
	}

	return &result, nil
}
