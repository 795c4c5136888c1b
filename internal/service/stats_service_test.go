package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ju10/academy-api/internal/models"
	appErrors "github.com/ju10/academy-api/pkg/errors"
)

type memoryCacheRepo struct {
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	delete(m.entries, pattern)
	return nil
}

type stubStatsRepo struct {
	rows  []models.RevenueByKind
	calls int
}

func (m *stubStatsRepo) RevenueByKind(ctx context.Context) ([]models.RevenueByKind, error) {
	m.calls++
	return m.rows, nil
}

func TestAdminStatsSumsAllKinds(t *testing.T) {
	repo := &stubStatsRepo{rows: []models.RevenueByKind{
		{Kind: models.SubjectClass, Confirmed: 3, Revenue: 45000},
		{Kind: models.SubjectCourse, Confirmed: 2, Revenue: 30000},
		{Kind: models.SubjectMentorship, Confirmed: 1, Revenue: 48000},
	}}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewStatsService(repo, cache, nil, StatsServiceConfig{})

	stats, err := svc.AdminStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 123000.0, stats.TotalRevenue)
	assert.Equal(t, "AOA", stats.Currency)
	assert.Len(t, stats.ByKind, 3)
	assert.False(t, stats.FromCache)
}

func TestAdminStatsServesFromCache(t *testing.T) {
	repo := &stubStatsRepo{rows: []models.RevenueByKind{
		{Kind: models.SubjectClass, Confirmed: 1, Revenue: 15000},
	}}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewStatsService(repo, cache, nil, StatsServiceConfig{})

	first, err := svc.AdminStats(context.Background())
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := svc.AdminStats(context.Background())
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.TotalRevenue, second.TotalRevenue)
	assert.Equal(t, 1, repo.calls)
}

func TestInvalidateStatsForcesRecompute(t *testing.T) {
	repo := &stubStatsRepo{rows: []models.RevenueByKind{
		{Kind: models.SubjectCourse, Confirmed: 1, Revenue: 10000},
	}}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewStatsService(repo, cache, nil, StatsServiceConfig{})

	_, err := svc.AdminStats(context.Background())
	require.NoError(t, err)

	svc.InvalidateStats(context.Background())

	repo.rows[0].Revenue = 20000
	stats, err := svc.AdminStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20000.0, stats.TotalRevenue)
	assert.Equal(t, 2, repo.calls)
}

func TestAdminStatsWithDisabledCache(t *testing.T) {
	repo := &stubStatsRepo{rows: nil}
	cache := NewCacheService(nil, nil, time.Minute, nil, false)
	svc := NewStatsService(repo, cache, nil, StatsServiceConfig{Currency: "USD"})

	stats, err := svc.AdminStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRevenue)
	assert.Equal(t, "USD", stats.Currency)
}
