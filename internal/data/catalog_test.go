package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"movieetl/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(url string) *catalogClient {
	return NewCatalogClient(&conf.Catalog{
		Url:     url,
		Token:   "secret",
		Timeout: conf.NewDuration(2 * time.Second),
	}, log.DefaultLogger).(*catalogClient)
}

func TestCatalogFetch(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.RequestURI()
		switch r.URL.Path {
		case "/movie/top_rated":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"page":1,"results":[{"id":27205,"title":"Inception"}]}`))
		case "/movie/broken":
			_, _ = w.Write([]byte(`{"page":`))
		default:
			http.Error(w, `{"status_message":"not found"}`, http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestCatalog(srv.URL + "/")
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		status, doc, err := c.Fetch(ctx, "/movie/top_rated?page=1")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Bearer secret", gotAuth)
		assert.Equal(t, "/movie/top_rated?page=1", gotPath)

		results := doc.Documents("results")
		require.Len(t, results, 1)
		id, ok := results[0].Int64("id")
		assert.True(t, ok)
		assert.Equal(t, int64(27205), id)
	})

	t.Run("non-200 is not an error", func(t *testing.T) {
		status, doc, err := c.Fetch(ctx, "/movie/404")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Nil(t, doc)
	})

	t.Run("bad body", func(t *testing.T) {
		status, _, err := c.Fetch(ctx, "/movie/broken")
		assert.Error(t, err)
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestCatalogFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	status, doc, err := newTestCatalog(url).Fetch(context.Background(), "/movie/1")
	assert.Error(t, err)
	assert.Zero(t, status)
	assert.Nil(t, doc)
}

func TestEndpointLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/movie/top_rated?page=3", "listing"},
		{"/movie/27205", "details"},
		{"/movie/27205/credits", "credits"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, endpointLabel(tt.path))
		})
	}
}
