package data

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"movieetl/internal/biz"
	"movieetl/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/klauspost/compress/gzip"
)

// nullMarker is how the bulk TSV files spell NULL.
const nullMarker = `\N`

type datasetSource struct {
	client *http.Client
	log    *log.Helper
}

// NewDatasetSource creates the downloader and reader for bulk dataset files
func NewDatasetSource(c *conf.Dataset, logger log.Logger) biz.DatasetSource {
	return &datasetSource{
		client: &http.Client{
			Timeout: c.Timeout.AsDuration(),
		},
		log: log.NewHelper(logger),
	}
}

// Download streams url to dest without parsing it. The file is written under
// a temporary name and renamed once complete.
func (s *datasetSource) Download(ctx context.Context, url, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create download dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", biz.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %s: unexpected status code: %d", biz.ErrDownloadFailed, url, resp.StatusCode)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("%w: %v", biz.ErrDownloadFailed, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return 0, fmt.Errorf("failed to move %s into place: %w", dest, err)
	}

	s.log.Infof("downloaded %s (%d bytes)", filepath.Base(dest), n)
	return n, nil
}

func (s *datasetSource) Open(path string) (biz.RowReader, error) {
	return openTSV(path)
}

// tsvReader reads tab-separated rows, gunzipping files that end in .gz.
type tsvReader struct {
	closers []io.Closer
	br      *bufio.Reader
	header  []string
	eof     bool
}

func openTSV(path string) (*tsvReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &tsvReader{closers: []io.Closer{f}}

	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if errors.Is(err, io.EOF) {
			// zero-byte file
			r.eof = true
			return r, nil
		}
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		r.closers = append(r.closers, gz)
		src = gz
	}
	r.br = bufio.NewReaderSize(src, 1<<20)

	line, err := r.readLine()
	if err != nil && !errors.Is(err, io.EOF) {
		_ = r.Close()
		return nil, err
	}
	if line != "" {
		r.header = strings.Split(line, "\t")
	}
	return r, nil
}

func (r *tsvReader) Header() []string {
	return r.header
}

// Next returns up to n rows. io.EOF is only returned with no rows.
func (r *tsvReader) Next(n int) ([][]*string, error) {
	if r.eof || r.header == nil {
		return nil, io.EOF
	}

	rows := make([][]*string, 0, n)
	for len(rows) < n {
		line, err := r.readLine()
		if line != "" {
			rows = append(rows, splitRow(line))
		}
		if errors.Is(err, io.EOF) {
			r.eof = true
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(rows) == 0 {
		return nil, io.EOF
	}
	return rows, nil
}

func (r *tsvReader) readLine() (string, error) {
	line, err := r.br.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	return line, err
}

func (r *tsvReader) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func splitRow(line string) []*string {
	fields := strings.Split(line, "\t")
	row := make([]*string, len(fields))
	for i := range fields {
		if fields[i] == nullMarker {
			continue
		}
		row[i] = &fields[i]
	}
	return row
}
