// internal/cache/dashboard.go
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mwidjaja/procura/internal/config"
	"github.com/mwidjaja/procura/internal/domain"
)

const (
	dashboardSummaryKeyPrefix = "dashboard:summary"
	scanBatchSize             = 100
)

// DashboardSummaryCache memoizes whole-catalog dashboard roll-ups, which
// replan every product on a miss.
type DashboardSummaryCache interface {
	GetSummary(ctx context.Context, filter *domain.DashboardFilter) (*domain.DashboardSummary, bool, error)
	SetSummary(ctx context.Context, filter *domain.DashboardFilter, summary *domain.DashboardSummary) error
	InvalidateAll(ctx context.Context) error
}

type redisDashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopDashboardCache struct{}

// NewDashboardCache returns a redis-backed cache, or a no-op one when
// caching is disabled.
func NewDashboardCache(cfg config.CacheConfig) (DashboardSummaryCache, error) {
	if !cfg.Enabled {
		return &noopDashboardCache{}, nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisDashboardCache{
		client: client,
		ttl:    ttlSeconds(cfg.DashboardTTLSeconds),
	}, nil
}

// NewNoopDashboardCache returns a cache that never hits.
func NewNoopDashboardCache() DashboardSummaryCache {
	return &noopDashboardCache{}
}

func (c *redisDashboardCache) GetSummary(ctx context.Context, filter *domain.DashboardFilter) (*domain.DashboardSummary, bool, error) {
	payload, err := c.client.Get(ctx, buildDashboardSummaryKey(filter)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summary domain.DashboardSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, false, fmt.Errorf("decode dashboard summary cache: %w", err)
	}

	return &summary, true, nil
}

func (c *redisDashboardCache) SetSummary(ctx context.Context, filter *domain.DashboardFilter, summary *domain.DashboardSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode dashboard summary cache: %w", err)
	}

	if err := c.client.Set(ctx, buildDashboardSummaryKey(filter), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisDashboardCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, dashboardSummaryKeyPrefix, scanBatchSize)
}

func (n *noopDashboardCache) GetSummary(ctx context.Context, filter *domain.DashboardFilter) (*domain.DashboardSummary, bool, error) {
	return nil, false, nil
}

func (n *noopDashboardCache) SetSummary(ctx context.Context, filter *domain.DashboardFilter, summary *domain.DashboardSummary) error {
	return nil
}

func (n *noopDashboardCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildDashboardSummaryKey(filter *domain.DashboardFilter) string {
	if filter == nil {
		return dashboardSummaryKeyPrefix + ":default"
	}

	var parts []string
	if filter.ReferenceDate != "" {
		parts = append(parts, "reference_date="+strings.TrimSpace(filter.ReferenceDate))
	}
	if filter.Urgency != "" {
		parts = append(parts, "urgency="+strings.ToLower(strings.TrimSpace(filter.Urgency)))
	}
	if len(filter.ProductIDs) > 0 {
		ids := append([]string(nil), filter.ProductIDs...)
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
		sort.Strings(ids)
		parts = append(parts, "products="+strings.Join(ids, ","))
	}

	if len(parts) == 0 {
		return dashboardSummaryKeyPrefix + ":default"
	}

	raw := strings.Join(parts, "|")
	hash := sha1.Sum([]byte(raw))
	return fmt.Sprintf("%s:%s", dashboardSummaryKeyPrefix, hex.EncodeToString(hash[:]))
}
