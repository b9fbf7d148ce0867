package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/escalopa/tajweed-bot/internal/domain"
)

const (
	corpusKeyPrefix = "corpus:"
	surahListKey    = corpusKeyPrefix + "surahs"
)

// CorpusCache keeps corpus responses in redis. Cache failures are logged and
// the call falls through to the wrapped corpus.
type CorpusCache struct {
	client *redis.Client
	next   domain.CorpusPort
	ttl    time.Duration
	logger *zap.Logger
}

func NewCorpusCache(client *redis.Client, next domain.CorpusPort, ttl time.Duration, logger *zap.Logger) *CorpusCache {
	return &CorpusCache{client: client, next: next, ttl: ttl, logger: logger}
}

func surahKey(surahNumber int) string {
	return fmt.Sprintf("%ssurah:%d", corpusKeyPrefix, surahNumber)
}

// ListSurahs lists every surah with its ayah count
func (c *CorpusCache) ListSurahs(ctx context.Context) ([]domain.Surah, error) {
	var surahs []domain.Surah
	if c.load(ctx, surahListKey, &surahs) {
		return surahs, nil
	}

	surahs, err := c.next.ListSurahs(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, surahListKey, surahs)

	return surahs, nil
}

// FetchVerseSet fetches a surah with all of its verses
func (c *CorpusCache) FetchVerseSet(ctx context.Context, surahNumber int) (*domain.VerseSet, error) {
	key := surahKey(surahNumber)

	var set domain.VerseSet
	if c.load(ctx, key, &set) {
		return &set, nil
	}

	fetched, err := c.next.FetchVerseSet(ctx, surahNumber)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fetched)

	return fetched, nil
}

func (c *CorpusCache) load(ctx context.Context, key string, out any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logger.Warn("corpus cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("corpus cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CorpusCache) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("corpus cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("corpus cache write failed", zap.String("key", key), zap.Error(err))
	}
}
