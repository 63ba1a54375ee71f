package biz

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
)

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func float64Ptr(f float64) *float64 { return &f }

type fakeResponse struct {
	status  int
	payload Document
	err     error
}

// fakeCatalog serves canned responses by path and records every request.
type fakeCatalog struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	requests  []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{responses: make(map[string]fakeResponse)}
}

func (c *fakeCatalog) set(path string, status int, payload Document, err error) {
	c.responses[path] = fakeResponse{status: status, payload: payload, err: err}
}

func (c *fakeCatalog) Fetch(ctx context.Context, path string) (int, Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, path)
	r, ok := c.responses[path]
	if !ok {
		return 404, nil, nil
	}
	return r.status, r.payload, r.err
}

// memStaging is an in-memory StagingRepo.
type memStaging struct {
	movies   map[int64]*StagedMovie
	credits  map[int64]Document
	writeErr error
}

func newMemStaging() *memStaging {
	return &memStaging{
		movies:  make(map[int64]*StagedMovie),
		credits: make(map[int64]Document),
	}
}

func (s *memStaging) movie(id int64) *StagedMovie {
	m, ok := s.movies[id]
	if !ok {
		m = &StagedMovie{ID: id}
		s.movies[id] = m
	}
	return m
}

func (s *memStaging) UpsertListing(ctx context.Context, id int64, listing Document) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.movie(id).Listing = listing
	return nil
}

func (s *memStaging) UpsertDetails(ctx context.Context, id int64, details Document) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.movie(id).Details = details
	return nil
}

func (s *memStaging) UpsertCredits(ctx context.Context, id int64, credits Document) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.credits[id] = credits
	return nil
}

func (s *memStaging) GetCredits(ctx context.Context, id int64) (Document, error) {
	return s.credits[id], nil
}

func (s *memStaging) ListIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(s.movies))
	for id := range s.movies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memStaging) ListDetailed(ctx context.Context, limit int) ([]*StagedMovie, error) {
	ids, _ := s.ListIDs(ctx)
	var out []*StagedMovie
	for _, id := range ids {
		if s.movies[id].Details == nil {
			continue
		}
		out = append(out, s.movies[id])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *memStaging) Count(ctx context.Context) (int64, error) {
	return int64(len(s.movies)), nil
}

// memTables is an in-memory MovieTableRepo.
type memTables struct {
	movies      []*MovieRow
	genres      []*GenreRow
	movieGenres []*MovieGenreLink
	cast        []*CastRow
	crew        []*CrewRow
	integrated  []*IntegratedMovie
	replaced    []string
	dups        []int64
}

func (t *memTables) ReplaceMovies(ctx context.Context, rows []*MovieRow) error {
	t.movies = rows
	t.replaced = append(t.replaced, TableMovies)
	return nil
}

func (t *memTables) ReplaceGenres(ctx context.Context, rows []*GenreRow) error {
	t.genres = rows
	t.replaced = append(t.replaced, "genres")
	return nil
}

func (t *memTables) ReplaceMovieGenres(ctx context.Context, rows []*MovieGenreLink) error {
	t.movieGenres = rows
	t.replaced = append(t.replaced, "movie_genres")
	return nil
}

func (t *memTables) ReplaceCast(ctx context.Context, rows []*CastRow) error {
	t.cast = rows
	t.replaced = append(t.replaced, TableCast)
	return nil
}

func (t *memTables) ReplaceCrew(ctx context.Context, rows []*CrewRow) error {
	t.crew = rows
	t.replaced = append(t.replaced, TableCrew)
	return nil
}

func (t *memTables) ListMovies(ctx context.Context) ([]*MovieRow, error) {
	return t.movies, nil
}

func (t *memTables) ReplaceIntegrated(ctx context.Context, rows []*IntegratedMovie) error {
	t.integrated = rows
	t.replaced = append(t.replaced, TableIntegrated)
	return nil
}

func (t *memTables) CountRows(ctx context.Context, table string) (int64, error) {
	switch table {
	case TableMovies:
		return int64(len(t.movies)), nil
	case TableCast:
		return int64(len(t.cast)), nil
	case TableCrew:
		return int64(len(t.crew)), nil
	case TableIntegrated:
		return int64(len(t.integrated)), nil
	}
	return 0, nil
}

func (t *memTables) DuplicateMovieIDs(ctx context.Context) ([]int64, error) {
	return t.dups, nil
}

// memDatasets is an in-memory DatasetRepo.
type memDatasets struct {
	tables  map[string][][]*string
	creates map[string]int
	trims   map[string]int
	titles  []*ExternalTitle
	ratings []*ExternalRating
}

func newMemDatasets() *memDatasets {
	return &memDatasets{
		tables:  make(map[string][][]*string),
		creates: make(map[string]int),
		trims:   make(map[string]int),
	}
}

func (d *memDatasets) CreateTable(ctx context.Context, table string, columns []string) error {
	d.tables[table] = [][]*string{}
	d.creates[table]++
	return nil
}

func (d *memDatasets) AppendRows(ctx context.Context, table string, columns []string, rows [][]*string) error {
	t, ok := d.tables[table]
	if !ok {
		return errors.New("no such table: " + table)
	}
	d.tables[table] = append(t, rows...)
	return nil
}

func (d *memDatasets) CountRows(ctx context.Context, table string) (int64, error) {
	return int64(len(d.tables[table])), nil
}

func (d *memDatasets) TrimRows(ctx context.Context, table string, max int) error {
	d.trims[table]++
	if len(d.tables[table]) > max {
		d.tables[table] = d.tables[table][:max]
	}
	return nil
}

func (d *memDatasets) ListTitles(ctx context.Context) ([]*ExternalTitle, error) {
	return d.titles, nil
}

func (d *memDatasets) ListRatings(ctx context.Context) ([]*ExternalRating, error) {
	return d.ratings, nil
}

// memSource serves in-memory files by base name.
type memSource struct {
	files       map[string]*memFile
	downloadErr error
	downloaded  []string
}

type memFile struct {
	header []string
	rows   [][]*string
}

func (s *memSource) Download(ctx context.Context, url, dest string) (int64, error) {
	if s.downloadErr != nil {
		return 0, s.downloadErr
	}
	s.downloaded = append(s.downloaded, url)
	return 1, nil
}

func (s *memSource) Open(path string) (RowReader, error) {
	for name, f := range s.files {
		if len(path) >= len(name) && path[len(path)-len(name):] == name {
			return &memReader{file: f}, nil
		}
	}
	return nil, errors.New("no such file: " + path)
}

type memReader struct {
	file *memFile
	pos  int
}

func (r *memReader) Header() []string { return r.file.header }

func (r *memReader) Next(n int) ([][]*string, error) {
	if r.pos >= len(r.file.rows) {
		return nil, io.EOF
	}
	end := min(r.pos+n, len(r.file.rows))
	rows := r.file.rows[r.pos:end]
	r.pos = end
	return rows, nil
}

func (r *memReader) Close() error { return nil }

func cells(values ...string) []*string {
	row := make([]*string, len(values))
	for i := range values {
		row[i] = &values[i]
	}
	return row
}
