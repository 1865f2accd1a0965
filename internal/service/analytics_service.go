package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/integrity-watch/report-service/internal/cache"
	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/observability"
	"github.com/integrity-watch/report-service/internal/repository"
	apperrors "github.com/integrity-watch/report-service/pkg/util/errorutil"
)

// AnalyticsCachePrefix namespaces every cached analytics result.
const AnalyticsCachePrefix = "analytics:"

const (
	defaultTrendDays     = 30
	maxTrendDays         = 365
	defaultLocationLimit = 20
	maxLocationLimit     = 100
)

// AnalyticsService serves cached aggregate statistics.
type AnalyticsService struct {
	repo    repository.AnalyticsRepository
	cache   cache.Cache
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// AnalyticsDependencies bundles collaborators for the analytics service.
type AnalyticsDependencies struct {
	AnalyticsRepo repository.AnalyticsRepository
	Cache         cache.Cache
	TTL           time.Duration
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(deps AnalyticsDependencies) *AnalyticsService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := deps.Cache
	if c == nil {
		c = cache.NewMemoryCache()
	}
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AnalyticsService{
		repo:    deps.AnalyticsRepo,
		cache:   c,
		ttl:     ttl,
		metrics: deps.Metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// cached serves key from the cache or computes and stores it. Cache failures degrade to recomputing.
func cached[T any](ctx context.Context, s *AnalyticsService, key string, compute func() (T, error)) (T, error) {
	var value T
	hit, err := s.cache.Get(ctx, key, &value)
	if err != nil {
		s.logger.Warn("analytics cache read", zap.String("key", key), zap.Error(err))
	}
	s.metrics.CacheLookup(hit)
	if hit {
		return value, nil
	}
	value, err = compute()
	if err != nil {
		return value, err
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("analytics cache write", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

// Overview summarizes all reports.
func (s *AnalyticsService) Overview(ctx context.Context) (*domain.AnalyticsOverview, error) {
	return cached(ctx, s, AnalyticsCachePrefix+"overview", func() (*domain.AnalyticsOverview, error) {
		return s.repo.Overview(ctx)
	})
}

// ByCategory counts reports per category.
func (s *AnalyticsService) ByCategory(ctx context.Context) ([]domain.Bucket, error) {
	return s.countBy(ctx, "categories", repository.DimensionCategory)
}

// ByStatus counts reports per status.
func (s *AnalyticsService) ByStatus(ctx context.Context) ([]domain.Bucket, error) {
	return s.countBy(ctx, "statuses", repository.DimensionStatus)
}

// ByPriority counts reports per priority.
func (s *AnalyticsService) ByPriority(ctx context.Context) ([]domain.Bucket, error) {
	return s.countBy(ctx, "priorities", repository.DimensionPriority)
}

func (s *AnalyticsService) countBy(ctx context.Context, name string, dim repository.Dimension) ([]domain.Bucket, error) {
	return cached(ctx, s, AnalyticsCachePrefix+name, func() ([]domain.Bucket, error) {
		return s.repo.CountBy(ctx, dim)
	})
}

// ByLocation returns the busiest state/city pairs.
func (s *AnalyticsService) ByLocation(ctx context.Context, limit int) ([]domain.LocationBucket, error) {
	if limit <= 0 {
		limit = defaultLocationLimit
	}
	if limit > maxLocationLimit {
		limit = maxLocationLimit
	}
	return cached(ctx, s, fmt.Sprintf("%slocations:%d", AnalyticsCachePrefix, limit), func() ([]domain.LocationBucket, error) {
		return s.repo.ByLocation(ctx, limit)
	})
}

// Trends returns one point per UTC day for the last days days, oldest first.
func (s *AnalyticsService) Trends(ctx context.Context, days int) ([]domain.TrendPoint, error) {
	if days == 0 {
		days = defaultTrendDays
	}
	if days < 1 || days > maxTrendDays {
		return nil, apperrors.NewValidationError(fmt.Sprintf("days must be between 1 and %d", maxTrendDays),
			map[string]any{"days": days})
	}
	return cached(ctx, s, fmt.Sprintf("%strends:%d", AnalyticsCachePrefix, days), func() ([]domain.TrendPoint, error) {
		today := s.now().UTC().Truncate(24 * time.Hour)
		since := today.AddDate(0, 0, -(days - 1))
		created, resolved, err := s.repo.Trends(ctx, since)
		if err != nil {
			return nil, err
		}
		points := make([]domain.TrendPoint, 0, days)
		for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
			key := d.Format(time.DateOnly)
			points = append(points, domain.TrendPoint{Date: key, Created: created[key], Resolved: resolved[key]})
		}
		return points, nil
	})
}

// OfficerPerformance returns caseload statistics per assigned officer.
func (s *AnalyticsService) OfficerPerformance(ctx context.Context) ([]domain.OfficerStats, error) {
	return cached(ctx, s, AnalyticsCachePrefix+"officers", func() ([]domain.OfficerStats, error) {
		return s.repo.OfficerPerformance(ctx)
	})
}

// Invalidate drops every cached analytics result.
func (s *AnalyticsService) Invalidate(ctx context.Context) error {
	return s.cache.DeletePrefix(ctx, AnalyticsCachePrefix)
}
