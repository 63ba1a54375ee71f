package data

import (
	"context"
	"fmt"

	"movieetl/internal/biz"
	"movieetl/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

const insertBatchSize = 500

type movieTableRepo struct {
	data *Data
	log  *log.Helper
}

// NewMovieTableRepo creates the repository for the normalized and integrated tables
func NewMovieTableRepo(data *Data, logger log.Logger) biz.MovieTableRepo {
	return &movieTableRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// replaceTable drops and recreates the table of T, then inserts rows in
// batches. Concurrent readers may observe the table empty or partially loaded.
func replaceTable[T any](ctx context.Context, db *gorm.DB, rows []*T) error {
	model := new(T)
	db = db.WithContext(ctx)

	if err := db.Migrator().DropTable(model); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if err := db.Migrator().CreateTable(model); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := db.CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert rows: %w", err)
	}
	return nil
}

func (r *movieTableRepo) ReplaceMovies(ctx context.Context, rows []*biz.MovieRow) error {
	models := make([]*Movie, 0, len(rows))
	for _, row := range rows {
		models = append(models, movieToModel(row))
	}
	return r.replace(ctx, "movies", len(models), func() error {
		return replaceTable(ctx, r.data.db, models)
	})
}

func (r *movieTableRepo) ReplaceGenres(ctx context.Context, rows []*biz.GenreRow) error {
	models := make([]*Genre, 0, len(rows))
	for _, row := range rows {
		models = append(models, &Genre{GenreID: row.GenreID, GenreName: row.GenreName})
	}
	return r.replace(ctx, "genres", len(models), func() error {
		return replaceTable(ctx, r.data.db, models)
	})
}

func (r *movieTableRepo) ReplaceMovieGenres(ctx context.Context, rows []*biz.MovieGenreLink) error {
	models := make([]*MovieGenre, 0, len(rows))
	for _, row := range rows {
		models = append(models, &MovieGenre{MovieID: row.MovieID, GenreID: row.GenreID})
	}
	return r.replace(ctx, "movie_genres", len(models), func() error {
		return replaceTable(ctx, r.data.db, models)
	})
}

func (r *movieTableRepo) ReplaceCast(ctx context.Context, rows []*biz.CastRow) error {
	models := make([]*Cast, 0, len(rows))
	for _, row := range rows {
		models = append(models, &Cast{
			MovieID:       row.MovieID,
			ActorID:       row.ActorID,
			ActorName:     row.ActorName,
			CharacterName: row.CharacterName,
			Gender:        row.Gender,
			Popularity:    row.Popularity,
		})
	}
	return r.replace(ctx, "cast", len(models), func() error {
		return replaceTable(ctx, r.data.db, models)
	})
}

func (r *movieTableRepo) ReplaceCrew(ctx context.Context, rows []*biz.CrewRow) error {
	models := make([]*Crew, 0, len(rows))
	for _, row := range rows {
		models = append(models, &Crew{
			MovieID:    row.MovieID,
			PersonID:   row.PersonID,
			Name:       row.Name,
			Job:        row.Job,
			Department: row.Department,
		})
	}
	return r.replace(ctx, "crew", len(models), func() error {
		return replaceTable(ctx, r.data.db, models)
	})
}

func (r *movieTableRepo) ReplaceIntegrated(ctx context.Context, rows []*biz.IntegratedMovie) error {
	models := make([]*MovieIntegrated, 0, len(rows))
	for _, row := range rows {
		models = append(models, integratedToModel(row))
	}
	return r.replace(ctx, "movies_integrated", len(models), func() error {
		return replaceTable(ctx, r.data.db, models)
	})
}

func (r *movieTableRepo) replace(ctx context.Context, table string, n int, fn func() error) error {
	if err := fn(); err != nil {
		return fmt.Errorf("failed to replace %s: %w", table, err)
	}
	metrics.TableRows.WithLabelValues(table).Set(float64(n))
	r.log.WithContext(ctx).Debugf("replaced %s with %d rows", table, n)
	return nil
}

func (r *movieTableRepo) ListMovies(ctx context.Context) ([]*biz.MovieRow, error) {
	var models []Movie
	if err := r.data.db.WithContext(ctx).Order("movie_id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}

	rows := make([]*biz.MovieRow, 0, len(models))
	for i := range models {
		rows = append(rows, modelToMovie(&models[i]))
	}
	return rows, nil
}

// CountRows returns zero for a table that does not exist yet.
func (r *movieTableRepo) CountRows(ctx context.Context, table string) (int64, error) {
	db := r.data.db.WithContext(ctx)
	if !db.Migrator().HasTable(table) {
		return 0, nil
	}
	var n int64
	if err := db.Table(table).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func (r *movieTableRepo) DuplicateMovieIDs(ctx context.Context) ([]int64, error) {
	db := r.data.db.WithContext(ctx)
	if !db.Migrator().HasTable(&Movie{}) {
		return nil, nil
	}
	var ids []int64
	err := db.Model(&Movie{}).
		Select("movie_id").
		Group("movie_id").
		Having("COUNT(*) > 1").
		Order("movie_id").
		Pluck("movie_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate movie ids: %w", err)
	}
	return ids, nil
}

// Helper: Convert biz.MovieRow to data.Movie
func movieToModel(m *biz.MovieRow) *Movie {
	return &Movie{
		MovieID:     m.MovieID,
		Title:       m.Title,
		Overview:    m.Overview,
		ReleaseDate: m.ReleaseDate,
		Popularity:  m.Popularity,
		VoteAverage: m.VoteAverage,
		VoteCount:   m.VoteCount,
		Runtime:     m.Runtime,
		Budget:      m.Budget,
		Revenue:     m.Revenue,
		Status:      m.Status,
		Language:    m.Language,
	}
}

// Helper: Convert data.Movie to biz.MovieRow
func modelToMovie(m *Movie) *biz.MovieRow {
	return &biz.MovieRow{
		MovieID:     m.MovieID,
		Title:       m.Title,
		Overview:    m.Overview,
		ReleaseDate: m.ReleaseDate,
		Popularity:  m.Popularity,
		VoteAverage: m.VoteAverage,
		VoteCount:   m.VoteCount,
		Runtime:     m.Runtime,
		Budget:      m.Budget,
		Revenue:     m.Revenue,
		Status:      m.Status,
		Language:    m.Language,
	}
}

func integratedToModel(m *biz.IntegratedMovie) *MovieIntegrated {
	return &MovieIntegrated{
		MovieID:     m.MovieID,
		Title:       m.Title,
		ReleaseDate: m.ReleaseDate,
		Year:        m.Year,
		Budget:      m.Budget,
		Revenue:     m.Revenue,
		Profit:      m.Profit,
		ROI:         m.ROI,
		TMDBRating:  m.TMDBRating,
		TMDBVotes:   m.TMDBVotes,
		IMDbRating:  m.IMDbRating,
		IMDbVotes:   m.IMDbVotes,
		Tconst:      m.Tconst,
	}
}
