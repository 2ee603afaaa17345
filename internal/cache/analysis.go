// internal/cache/analysis.go
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mwidjaja/procura/internal/config"
	"github.com/mwidjaja/procura/internal/domain"
)

const (
	analysisKeyPrefix     = "analysis:substitution"
	analysisScanBatchSize = 100
)

// AnalysisCache memoizes substitution analyses. They walk a product's full
// sales and stock history, so repeated dashboard hits should not redo the
// scan.
type AnalysisCache interface {
	Get(ctx context.Context, req domain.AnalysisRequest) (*domain.SubstitutionAnalysis, bool, error)
	Set(ctx context.Context, req domain.AnalysisRequest, analysis *domain.SubstitutionAnalysis) error
	InvalidateProduct(ctx context.Context, productID string) error
	InvalidateAll(ctx context.Context) error
}

type redisAnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopAnalysisCache struct{}

// NewAnalysisCache returns a redis-backed cache, or a no-op one when
// caching is disabled.
func NewAnalysisCache(cfg config.CacheConfig) (AnalysisCache, error) {
	if !cfg.Enabled {
		return &noopAnalysisCache{}, nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisAnalysisCache{
		client: client,
		ttl:    ttlSeconds(cfg.AnalysisTTLSeconds),
	}, nil
}

// NewNoopAnalysisCache returns a cache that never hits.
func NewNoopAnalysisCache() AnalysisCache {
	return &noopAnalysisCache{}
}

func (c *redisAnalysisCache) Get(ctx context.Context, req domain.AnalysisRequest) (*domain.SubstitutionAnalysis, bool, error) {
	payload, err := c.client.Get(ctx, buildAnalysisKey(req)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var analysis domain.SubstitutionAnalysis
	if err := json.Unmarshal(payload, &analysis); err != nil {
		return nil, false, fmt.Errorf("decode analysis cache: %w", err)
	}

	return &analysis, true, nil
}

func (c *redisAnalysisCache) Set(ctx context.Context, req domain.AnalysisRequest, analysis *domain.SubstitutionAnalysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis cache: %w", err)
	}

	if err := c.client.Set(ctx, buildAnalysisKey(req), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateProduct drops every cached analysis where the product is the
// primary. Called when new context entries or history land for it.
func (c *redisAnalysisCache) InvalidateProduct(ctx context.Context, productID string) error {
	return deleteKeysWithPrefix(ctx, c.client, analysisKeyPrefix+":"+productID+":", analysisScanBatchSize)
}

func (c *redisAnalysisCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, analysisKeyPrefix, analysisScanBatchSize)
}

func (n *noopAnalysisCache) Get(ctx context.Context, req domain.AnalysisRequest) (*domain.SubstitutionAnalysis, bool, error) {
	return nil, false, nil
}

func (n *noopAnalysisCache) Set(ctx context.Context, req domain.AnalysisRequest, analysis *domain.SubstitutionAnalysis) error {
	return nil
}

func (n *noopAnalysisCache) InvalidateProduct(ctx context.Context, productID string) error {
	return nil
}

func (n *noopAnalysisCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// buildAnalysisKey embeds the primary product id in clear so per-product
// invalidation can scan by prefix; the rest of the request is hashed.
func buildAnalysisKey(req domain.AnalysisRequest) string {
	parts := []string{"substitute=" + strings.TrimSpace(req.SubstituteProductID)}
	if req.From != nil {
		parts = append(parts, "from="+req.From.Format("2006-01-02"))
	}
	if req.To != nil {
		parts = append(parts, "to="+req.To.Format("2006-01-02"))
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s:%s:%s", analysisKeyPrefix, strings.TrimSpace(req.PrimaryProductID), hex.EncodeToString(sum[:]))
}
