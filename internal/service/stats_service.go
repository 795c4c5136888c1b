package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ju10/academy-api/internal/models"
	appErrors "github.com/ju10/academy-api/pkg/errors"
)

type statsRepository interface {
	RevenueByKind(ctx context.Context) ([]models.RevenueByKind, error)
}

const statsCacheKey = "stats:admin"

// StatsServiceConfig carries dashboard settings.
type StatsServiceConfig struct {
	Currency string
	CacheTTL time.Duration
}

// StatsService computes the admin revenue dashboard. The aggregate comes out
// of one statement so all three kinds reflect the same read snapshot, and
// the result is cached briefly since reconciliation is an occasional,
// low-write workload.
type StatsService struct {
	repo   statsRepository
	cache  *CacheService
	logger *zap.Logger
	cfg    StatsServiceConfig
	now    func() time.Time
}

// NewStatsService constructs StatsService.
func NewStatsService(repo statsRepository, cache *CacheService, logger *zap.Logger, cfg StatsServiceConfig) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Currency == "" {
		cfg.Currency = "AOA"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	return &StatsService{
		repo:   repo,
		cache:  cache,
		logger: logger,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AdminStats returns the per-kind revenue breakdown plus the grand total.
func (s *StatsService) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	var cached models.AdminStats
	if hit, err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil && hit {
		cached.FromCache = true
		return &cached, nil
	}

	rows, err := s.repo.RevenueByKind(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute stats")
	}

	stats := &models.AdminStats{
		ByKind:     rows,
		Currency:   s.cfg.Currency,
		ComputedAt: s.now(),
	}
	for _, row := range rows {
		stats.TotalRevenue += row.Revenue
	}

	if err := s.cache.Set(ctx, statsCacheKey, stats, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache admin stats", zap.Error(err))
	}
	return stats, nil
}

// InvalidateStats drops the cached dashboard. Called after any enrollment
// transition so admins never act on stale totals.
func (s *StatsService) InvalidateStats(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, statsCacheKey); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}
