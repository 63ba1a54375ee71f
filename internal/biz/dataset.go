package biz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-kratos/kratos/v2/log"

	"movieetl/internal/conf"
	"movieetl/internal/metrics"
)

const (
	// DatasetMovieListing is the bulk file restricted to rows of type movie.
	DatasetMovieListing = "title.basics.tsv.gz"

	movieTitleType = "movie"
)

// DatasetFiles lists the bulk files loaded on every run, in load order.
var DatasetFiles = []string{
	DatasetMovieListing,
	"title.ratings.tsv.gz",
	"title.crew.tsv.gz",
	"name.basics.tsv.gz",
	"title.akas.tsv.gz",
}

// TableName maps a bulk file name to its table: "title.basics.tsv.gz" -> "title_basics".
func TableName(file string) string {
	return strings.ReplaceAll(strings.TrimSuffix(file, ".tsv.gz"), ".", "_")
}

// DefaultDatasets returns the bulk files served under baseURL.
func DefaultDatasets(baseURL string) []Dataset {
	baseURL = strings.TrimRight(baseURL, "/")
	datasets := make([]Dataset, 0, len(DatasetFiles))
	for _, file := range DatasetFiles {
		ds := Dataset{
			File:  file,
			URL:   baseURL + "/" + file,
			Table: TableName(file),
		}
		if file == DatasetMovieListing {
			ds.Filter = ColumnEquals("titleType", movieTitleType)
		}
		datasets = append(datasets, ds)
	}
	return datasets
}

// ColumnEquals keeps rows whose column holds exactly value. Rows are rejected
// when the column is absent from the header or null.
func ColumnEquals(column, value string) func(header []string, row []*string) bool {
	return func(header []string, row []*string) bool {
		for i, name := range header {
			if name != column {
				continue
			}
			return i < len(row) && row[i] != nil && *row[i] == value
		}
		return false
	}
}

// DatasetResult summarizes the load of one bulk file.
type DatasetResult struct {
	File       string `json:"file"`
	Table      string `json:"table"`
	Bytes      int64  `json:"bytes"`
	RowsRead   int    `json:"rows_read"`
	RowsLoaded int    `json:"rows_loaded"`
	Capped     bool   `json:"capped"`
}

// DatasetUseCase loads bulk files into untyped tables under a per-table record cap.
type DatasetUseCase struct {
	source     DatasetSource
	repo       DatasetRepo
	datasets   []Dataset
	dir        string
	chunkSize  int
	maxRecords int
	log        *log.Helper
}

// NewDatasetUseCase creates a new DatasetUseCase instance
func NewDatasetUseCase(source DatasetSource, repo DatasetRepo, c *conf.Dataset, logger log.Logger) *DatasetUseCase {
	return &DatasetUseCase{
		source:     source,
		repo:       repo,
		datasets:   DefaultDatasets(c.BaseUrl),
		dir:        c.DownloadDir,
		chunkSize:  c.ChunkSize,
		maxRecords: c.MaxRecords,
		log:        log.NewHelper(logger),
	}
}

// LoadAll downloads and loads every dataset in order. A download failure
// aborts the run.
func (uc *DatasetUseCase) LoadAll(ctx context.Context) ([]*DatasetResult, error) {
	results := make([]*DatasetResult, 0, len(uc.datasets))
	for _, ds := range uc.datasets {
		res, err := uc.Load(ctx, ds)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	uc.log.Infof("all datasets loaded (limited to %d records each)", uc.maxRecords)
	return results, nil
}

// Load downloads one dataset file and loads it into its table.
func (uc *DatasetUseCase) Load(ctx context.Context, ds Dataset) (*DatasetResult, error) {
	path := filepath.Join(uc.dir, ds.File)
	uc.log.Infof("downloading %s ...", ds.File)
	n, err := uc.source.Download(ctx, ds.URL, path)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", ds.File, err)
	}
	metrics.DatasetBytes.WithLabelValues(ds.File).Add(float64(n))

	res, err := uc.LoadFile(ctx, ds, path)
	if err != nil {
		return nil, err
	}
	res.Bytes = n
	return res, nil
}

// LoadFile streams a local dataset file into its table in chunks of
// chunkSize rows. Reading stops as soon as the record cap is reached.
func (uc *DatasetUseCase) LoadFile(ctx context.Context, ds Dataset, path string) (*DatasetResult, error) {
	res := &DatasetResult{File: ds.File, Table: ds.Table}

	r, err := uc.source.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ds.File, err)
	}
	defer r.Close()

	header := r.Header()
	if len(header) == 0 {
		uc.log.Warnf("%s is empty, table %s left unchanged", ds.File, ds.Table)
		return res, nil
	}
	uc.log.Infof("streaming %s -> table %s in chunks of %d rows (max %d)", ds.File, ds.Table, uc.chunkSize, uc.maxRecords)

	created := false
	for res.RowsLoaded < uc.maxRecords {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := r.Next(uc.chunkSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", ds.File, err)
		}
		res.RowsRead += len(rows)

		if ds.Filter != nil {
			rows = filterRows(header, rows, ds.Filter)
		}
		take := min(len(rows), uc.maxRecords-res.RowsLoaded)
		if take == 0 {
			continue
		}

		if !created {
			if err := uc.repo.CreateTable(ctx, ds.Table, header); err != nil {
				return nil, fmt.Errorf("create table %s: %w", ds.Table, err)
			}
			created = true
		}
		if err := uc.repo.AppendRows(ctx, ds.Table, header, rows[:take]); err != nil {
			return nil, fmt.Errorf("load table %s: %w", ds.Table, err)
		}
		res.RowsLoaded += take
		uc.log.Infof("   -> %d rows loaded so far into %s", res.RowsLoaded, ds.Table)
	}

	if res.RowsLoaded >= uc.maxRecords {
		res.Capped = true
		uc.log.Infof("hit %d record limit for %s", uc.maxRecords, ds.Table)
	}
	if !created {
		if err := uc.repo.CreateTable(ctx, ds.Table, header); err != nil {
			return nil, fmt.Errorf("create table %s: %w", ds.Table, err)
		}
	}

	count, err := uc.repo.CountRows(ctx, ds.Table)
	if err != nil {
		return nil, fmt.Errorf("count table %s: %w", ds.Table, err)
	}
	if count > int64(uc.maxRecords) {
		uc.log.Warnf("table %s holds %d rows, trimming to %d", ds.Table, count, uc.maxRecords)
		if err := uc.repo.TrimRows(ctx, ds.Table, uc.maxRecords); err != nil {
			return nil, fmt.Errorf("trim table %s: %w", ds.Table, err)
		}
		count = int64(uc.maxRecords)
	}

	metrics.TableRows.WithLabelValues(ds.Table).Set(float64(count))
	uc.log.Infof("finished %s | total rows = %d", ds.Table, res.RowsLoaded)
	return res, nil
}

func filterRows(header []string, rows [][]*string, keep func([]string, []*string) bool) [][]*string {
	out := rows[:0]
	for _, row := range rows {
		if keep(header, row) {
			out = append(out, row)
		}
	}
	return out
}
