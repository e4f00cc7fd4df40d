package overrides

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, repo *mockRepository) *CandidateCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCandidateCache(client, repo, time.Minute, logger)
}

func TestCandidateCacheServesSecondReadFromRedis(t *testing.T) {
	repo := newMockRepository()
	repo.records["ovr-1"] = validBase()
	cache := newTestCache(t, repo)
	ctx := context.Background()

	first, err := cache.ListCandidates(ctx, "C1", "P1", "")
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, repo.candidateLoads)

	second, err := cache.ListCandidates(ctx, "C1", "P1", "")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, repo.candidateLoads, "second read served from cache")
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestCandidateCacheInvalidateBumpsVersion(t *testing.T) {
	repo := newMockRepository()
	repo.records["ovr-1"] = validBase()
	cache := newTestCache(t, repo)
	ctx := context.Background()

	_, err := cache.ListCandidates(ctx, "C1", "P1", "")
	require.NoError(t, err)
	require.Equal(t, 1, repo.candidateLoads)

	require.NoError(t, cache.Invalidate(ctx))

	_, err = cache.ListCandidates(ctx, "C1", "P1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.candidateLoads, "invalidation forces a reload")
}

func TestCandidateCacheFallsBackWhenRedisDown(t *testing.T) {
	repo := newMockRepository()
	repo.records["ovr-1"] = validBase()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := NewCandidateCache(client, repo, time.Minute, logger)

	mr.Close()

	records, err := cache.ListCandidates(context.Background(), "C1", "P1", "")
	require.NoError(t, err, "redis outage must not break candidate reads")
	require.Len(t, records, 1)
	assert.Equal(t, 1, repo.candidateLoads)
}

func TestCandidateCacheNilClientLoadsDirectly(t *testing.T) {
	repo := newMockRepository()
	repo.records["ovr-1"] = validBase()
	cache := NewCandidateCache(nil, repo, time.Minute, nil)

	records, err := cache.ListCandidates(context.Background(), "C1", "P1", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
}
