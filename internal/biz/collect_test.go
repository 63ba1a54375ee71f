package biz

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movieetl/internal/conf"
)

func listingPage(ids ...interface{}) Document {
	results := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		item := map[string]interface{}{"title": "x"}
		if id != nil {
			item["id"] = id
		}
		results = append(results, item)
	}
	return Document{"results": results}
}

func TestListingPath(t *testing.T) {
	assert.Equal(t, "/movie/top_rated?page=3", ListingPath("top_rated", 3))
}

func TestCollect(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.set(ListingPath("top_rated", 1), http.StatusOK, listingPage(float64(1), float64(2)), nil)
	catalog.set(ListingPath("top_rated", 2), http.StatusInternalServerError, nil, nil)
	catalog.set(ListingPath("top_rated", 3), 0, nil, errors.New("connection reset"))
	catalog.set(ListingPath("top_rated", 4), http.StatusOK, listingPage(float64(2), nil, float64(3)), nil)

	staging := newMemStaging()
	uc := NewCollectUseCase(catalog, staging, &conf.Pipeline{}, log.DefaultLogger)

	res, err := uc.Collect(context.Background(), "top_rated", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Pages)
	assert.Equal(t, 2, res.FailedPages)
	assert.Equal(t, 4, res.Movies)
	assert.Equal(t, 1, res.Dropped)
	assert.Len(t, catalog.requests, 4)

	ids, _ := staging.ListIDs(context.Background())
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestCollectIsIdempotent(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.set(ListingPath("popular", 1), http.StatusOK, listingPage(float64(10), float64(11)), nil)

	staging := newMemStaging()
	uc := NewCollectUseCase(catalog, staging, &conf.Pipeline{}, log.DefaultLogger)

	for i := 0; i < 2; i++ {
		_, err := uc.Collect(context.Background(), "popular", 1)
		require.NoError(t, err)
	}
	n, _ := staging.Count(context.Background())
	assert.Equal(t, int64(2), n)
}

func TestCollectStagingErrorIsFatal(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.set(ListingPath("top_rated", 1), http.StatusOK, listingPage(float64(1)), nil)
	catalog.set(ListingPath("top_rated", 2), http.StatusOK, listingPage(float64(2)), nil)

	staging := newMemStaging()
	staging.writeErr = errors.New("store down")
	uc := NewCollectUseCase(catalog, staging, &conf.Pipeline{}, log.DefaultLogger)

	_, err := uc.Collect(context.Background(), "top_rated", 2)
	assert.ErrorIs(t, err, staging.writeErr)
	assert.Len(t, catalog.requests, 1)
}

func TestCollectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	catalog := newFakeCatalog()
	uc := NewCollectUseCase(catalog, newMemStaging(), &conf.Pipeline{PageDelay: conf.NewDuration(1)}, log.DefaultLogger)

	_, err := uc.Collect(ctx, "top_rated", 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, catalog.requests)
}
