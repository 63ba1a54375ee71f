package data

import (
	"context"
	"testing"

	"movieetl/internal/biz"

	"github.com/alicebob/miniredis/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStaging(t *testing.T) (biz.StagingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return newRedisStagingRepo(rdb, "test", log.DefaultLogger), mr
}

func newTestBadgerStaging(t *testing.T) biz.StagingRepo {
	t.Helper()
	kv, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return newBadgerStagingRepo(kv, log.DefaultLogger)
}

func stagingBackends(t *testing.T) map[string]biz.StagingRepo {
	redisRepo, _ := newTestRedisStaging(t)
	return map[string]biz.StagingRepo{
		"redis":  redisRepo,
		"badger": newTestBadgerStaging(t),
	}
}

func TestStagingUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, repo := range stagingBackends(t) {
		t.Run(name, func(t *testing.T) {
			listing := biz.Document{"id": float64(550), "title": "Fight Club"}
			require.NoError(t, repo.UpsertListing(ctx, 550, listing))
			require.NoError(t, repo.UpsertListing(ctx, 550, listing))
			require.NoError(t, repo.UpsertListing(ctx, 13, biz.Document{"id": float64(13)}))

			n, err := repo.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			ids, err := repo.ListIDs(ctx)
			require.NoError(t, err)
			assert.Equal(t, []int64{13, 550}, ids)
		})
	}
}

func TestStagingListDetailed(t *testing.T) {
	ctx := context.Background()
	for name, repo := range stagingBackends(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []int64{300, 20, 1000, 7} {
				require.NoError(t, repo.UpsertListing(ctx, id, biz.Document{"id": float64(id)}))
			}
			for _, id := range []int64{1000, 20, 7} {
				require.NoError(t, repo.UpsertDetails(ctx, id, biz.Document{"id": float64(id), "runtime": float64(120)}))
			}

			all, err := repo.ListDetailed(ctx, 0)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, int64(7), all[0].ID)
			assert.Equal(t, int64(20), all[1].ID)
			assert.Equal(t, int64(1000), all[2].ID)

			// listing survives the details upsert
			assert.Equal(t, float64(7), all[0].Listing["id"])
			runtime, ok := all[0].Details.Int64("runtime")
			assert.True(t, ok)
			assert.Equal(t, int64(120), runtime)

			limited, err := repo.ListDetailed(ctx, 2)
			require.NoError(t, err)
			require.Len(t, limited, 2)
			assert.Equal(t, int64(20), limited[1].ID)
		})
	}
}

func TestStagingCredits(t *testing.T) {
	ctx := context.Background()
	for name, repo := range stagingBackends(t) {
		t.Run(name, func(t *testing.T) {
			missing, err := repo.GetCredits(ctx, 42)
			require.NoError(t, err)
			assert.Nil(t, missing)

			credits := biz.Document{
				"id":   float64(42),
				"cast": []interface{}{map[string]interface{}{"id": float64(1), "name": "A"}},
			}
			require.NoError(t, repo.UpsertCredits(ctx, 42, credits))
			require.NoError(t, repo.UpsertCredits(ctx, 42, credits))

			got, err := repo.GetCredits(ctx, 42)
			require.NoError(t, err)
			require.Len(t, got.Documents("cast"), 1)

			// credits alone do not stage a movie
			n, err := repo.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestRedisStagingKeys(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestRedisStaging(t)

	require.NoError(t, repo.UpsertListing(ctx, 5, biz.Document{"id": float64(5)}))
	require.NoError(t, repo.UpsertCredits(ctx, 5, biz.Document{"id": float64(5)}))

	assert.True(t, mr.Exists("test:movie:5"))
	assert.True(t, mr.Exists("test:credits:5"))
	members, err := mr.ZMembers("test:movies")
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, members)
}
