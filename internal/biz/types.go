package biz

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrMissingID marks a payload that carries no usable identifier.
	ErrMissingID = errors.New("missing identifier")
	// ErrDownloadFailed is returned when a bulk dataset file cannot be fetched.
	ErrDownloadFailed = errors.New("dataset download failed")
)

// Document is an opaque JSON object as returned by the catalog API.
type Document map[string]interface{}

// Int64 returns the numeric value at key, accepting JSON numbers and numeric strings.
func (d Document) Int64(key string) (int64, bool) {
	switch v := d[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func (d Document) Float64(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func (d Document) String(key string) (string, bool) {
	v, ok := d[key].(string)
	return v, ok
}

// Documents returns the array of objects at key, skipping non-object elements.
func (d Document) Documents(key string) []Document {
	raw, ok := d[key].([]interface{})
	if !ok {
		return nil
	}
	docs := make([]Document, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case map[string]interface{}:
			docs = append(docs, Document(v))
		case Document:
			docs = append(docs, v)
		}
	}
	return docs
}

func (d Document) int64Ptr(key string) *int64 {
	if v, ok := d.Int64(key); ok {
		return &v
	}
	return nil
}

func (d Document) float64Ptr(key string) *float64 {
	if v, ok := d.Float64(key); ok {
		return &v
	}
	return nil
}

func (d Document) stringPtr(key string) *string {
	if v, ok := d.String(key); ok {
		return &v
	}
	return nil
}

// StagedMovie is one staging document keyed by the catalog movie id.
type StagedMovie struct {
	ID      int64    `json:"movie_id"`
	Listing Document `json:"raw,omitempty"`
	Details Document `json:"details,omitempty"`
}

// MovieRow is a row of the movies table.
type MovieRow struct {
	MovieID     int64
	Title       *string
	Overview    *string
	ReleaseDate *string
	Popularity  *float64
	VoteAverage *float64
	VoteCount   *int64
	Runtime     *int64
	Budget      *int64
	Revenue     *int64
	Status      *string
	Language    *string
}

type GenreRow struct {
	GenreID   int64
	GenreName string
}

type MovieGenreLink struct {
	MovieID int64
	GenreID int64
}

type CastRow struct {
	MovieID       int64
	ActorID       int64
	ActorName     *string
	CharacterName *string
	Gender        *int64
	Popularity    *float64
}

type CrewRow struct {
	MovieID    int64
	PersonID   int64
	Name       *string
	Job        *string
	Department *string
}

// NormalizedTables is the output of one transform run.
type NormalizedTables struct {
	Movies      []*MovieRow
	Genres      []*GenreRow
	MovieGenres []*MovieGenreLink
	Cast        []*CastRow
	Crew        []*CrewRow
}

// ExternalTitle is a row of title_basics as read back for integration.
type ExternalTitle struct {
	Tconst       string
	PrimaryTitle *string
	StartYear    *string
}

// ExternalRating is a row of title_ratings as read back for integration.
type ExternalRating struct {
	Tconst        string
	AverageRating *string
	NumVotes      *string
}

// IntegratedMovie is a row of movies_integrated.
type IntegratedMovie struct {
	MovieID     int64
	Title       *string
	ReleaseDate *string
	Year        *int64
	Budget      *int64
	Revenue     *int64
	Profit      *int64
	ROI         *float64
	TMDBRating  *float64
	TMDBVotes   *int64
	IMDbRating  *float64
	IMDbVotes   *int64
	Tconst      *string
}

// Dataset describes one bulk file and the table it lands in.
type Dataset struct {
	File  string
	URL   string
	Table string
	// Filter keeps a row when it returns true; nil keeps everything.
	Filter func(header []string, row []*string) bool
}

// ConsistencyReport is the read contract consumed by validation jobs.
type ConsistencyReport struct {
	StagedMovies     int64   `json:"staged_movies"`
	Movies           int64   `json:"movies"`
	Cast             int64   `json:"cast"`
	Crew             int64   `json:"crew"`
	Integrated       int64   `json:"integrated"`
	DuplicateMovieID []int64 `json:"duplicate_movie_ids"`
}

// CatalogClient fetches payloads from the movie catalog API.
type CatalogClient interface {
	// Fetch never fails for HTTP statuses; only transport errors are returned.
	Fetch(ctx context.Context, path string) (status int, payload Document, err error)
}

// StagingRepo is the document store holding raw and enriched catalog payloads.
type StagingRepo interface {
	UpsertListing(ctx context.Context, id int64, listing Document) error
	UpsertDetails(ctx context.Context, id int64, details Document) error
	UpsertCredits(ctx context.Context, id int64, credits Document) error
	// GetCredits returns nil without error when no credits are staged.
	GetCredits(ctx context.Context, id int64) (Document, error)
	ListIDs(ctx context.Context) ([]int64, error)
	// ListDetailed returns up to limit movies with details, ordered by id.
	ListDetailed(ctx context.Context, limit int) ([]*StagedMovie, error)
	Count(ctx context.Context) (int64, error)
}

// MovieTableRepo owns the normalized and integrated tables.
type MovieTableRepo interface {
	ReplaceMovies(ctx context.Context, rows []*MovieRow) error
	ReplaceGenres(ctx context.Context, rows []*GenreRow) error
	ReplaceMovieGenres(ctx context.Context, rows []*MovieGenreLink) error
	ReplaceCast(ctx context.Context, rows []*CastRow) error
	ReplaceCrew(ctx context.Context, rows []*CrewRow) error
	ListMovies(ctx context.Context) ([]*MovieRow, error)
	ReplaceIntegrated(ctx context.Context, rows []*IntegratedMovie) error
	CountRows(ctx context.Context, table string) (int64, error)
	DuplicateMovieIDs(ctx context.Context) ([]int64, error)
}

// DatasetRepo stores untyped bulk tables.
type DatasetRepo interface {
	// CreateTable drops any existing table and creates it with TEXT columns.
	CreateTable(ctx context.Context, table string, columns []string) error
	AppendRows(ctx context.Context, table string, columns []string, rows [][]*string) error
	CountRows(ctx context.Context, table string) (int64, error)
	// TrimRows keeps the first max rows in physical order.
	TrimRows(ctx context.Context, table string, max int) error
	ListTitles(ctx context.Context) ([]*ExternalTitle, error)
	ListRatings(ctx context.Context) ([]*ExternalRating, error)
}

// RowReader yields a delimited file in chunks.
type RowReader interface {
	// Header returns the column names; nil for an empty file.
	Header() []string
	// Next returns up to n rows, and io.EOF once the file is exhausted.
	Next(n int) ([][]*string, error)
	Close() error
}

// DatasetSource downloads bulk files and opens them for chunked reading.
type DatasetSource interface {
	Download(ctx context.Context, url, dest string) (int64, error)
	Open(path string) (RowReader, error)
}
