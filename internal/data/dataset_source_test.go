package data

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"movieetl/internal/biz"
	"movieetl/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGzip(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "title.ratings.tsv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func newTestSource() biz.DatasetSource {
	return NewDatasetSource(&conf.Dataset{Timeout: conf.NewDuration(5 * time.Second)}, log.DefaultLogger)
}

func TestTSVReaderChunks(t *testing.T) {
	path := writeGzip(t, "tconst\taverageRating\tnumVotes\n"+
		"tt1\t8.8\t100\n"+
		"tt2\t7.0\t\\N\n"+
		"tt3\t\"quoted\t5\n")

	r, err := newTestSource().Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"tconst", "averageRating", "numVotes"}, r.Header())

	rows, err := r.Next(2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "tt1", *rows[0][0])
	assert.Nil(t, rows[1][2])

	rows, err = r.Next(2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	// quotes are literal text
	assert.Equal(t, `"quoted`, *rows[0][1])

	_, err = r.Next(2)
	assert.ErrorIs(t, err, io.EOF)
}

func TestTSVReaderHeaderOnly(t *testing.T) {
	r, err := newTestSource().Open(writeGzip(t, "tconst\tnumVotes"))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"tconst", "numVotes"}, r.Header())
	_, err = r.Next(10)
	assert.ErrorIs(t, err, io.EOF)
}

func TestTSVReaderEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tsv.gz")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	r, err := newTestSource().Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Nil(t, r.Header())
	_, err = r.Next(10)
	assert.ErrorIs(t, err, io.EOF)
}

func TestDatasetDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.tsv.gz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "nested")
	src := newTestSource()

	t.Run("ok", func(t *testing.T) {
		dest := filepath.Join(dir, "title.basics.tsv.gz")
		n, err := src.Download(context.Background(), srv.URL+"/title.basics.tsv.gz", dest)
		require.NoError(t, err)
		assert.Equal(t, int64(7), n)

		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(got))
	})

	t.Run("not found", func(t *testing.T) {
		dest := filepath.Join(dir, "missing.tsv.gz")
		_, err := src.Download(context.Background(), srv.URL+"/missing.tsv.gz", dest)
		assert.True(t, errors.Is(err, biz.ErrDownloadFailed))
		assert.NoFileExists(t, dest)
	})
}
