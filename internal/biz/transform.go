package biz

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// TransformResult reports row counts written by one transform run.
type TransformResult struct {
	Processed   int `json:"processed"`
	Rejected    int `json:"rejected"`
	Movies      int `json:"movies"`
	Genres      int `json:"genres"`
	MovieGenres int `json:"movie_genres"`
	Cast        int `json:"cast"`
	Crew        int `json:"crew"`
}

// TransformUseCase normalizes enriched staging documents into relational tables.
type TransformUseCase struct {
	staging StagingRepo
	tables  MovieTableRepo
	log     *log.Helper
}

// NewTransformUseCase creates a new TransformUseCase instance
func NewTransformUseCase(staging StagingRepo, tables MovieTableRepo, logger log.Logger) *TransformUseCase {
	return &TransformUseCase{
		staging: staging,
		tables:  tables,
		log:     log.NewHelper(logger),
	}
}

// Transform reads up to limit enriched movies (no cap when limit <= 0) and replaces the five
// normalized tables. Each table is replaced on its own; there is no
// transaction spanning tables.
func (uc *TransformUseCase) Transform(ctx context.Context, limit int) (*TransformResult, error) {
	staged, err := uc.staging.ListDetailed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged movies: %w", err)
	}

	result := &TransformResult{}
	tables := &NormalizedTables{}
	for _, m := range staged {
		if limit > 0 && result.Processed >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		movie, err := MovieFromDetails(m.Details)
		if err != nil {
			result.Rejected++
			uc.log.Debugf("skipping staged movie %d: %v", m.ID, err)
			continue
		}
		tables.Movies = append(tables.Movies, movie)

		genres, links := GenresFromDetails(movie.MovieID, m.Details)
		tables.Genres = append(tables.Genres, genres...)
		tables.MovieGenres = append(tables.MovieGenres, links...)

		credits, err := uc.staging.GetCredits(ctx, movie.MovieID)
		if err != nil {
			return nil, fmt.Errorf("failed to read credits for movie %d: %w", movie.MovieID, err)
		}
		if credits != nil {
			cast, crew := CreditsRows(movie.MovieID, credits)
			tables.Cast = append(tables.Cast, cast...)
			tables.Crew = append(tables.Crew, crew...)
		}

		result.Processed++
	}

	tables.Movies = DedupMovies(tables.Movies)
	tables.Genres = DedupGenres(tables.Genres)

	if err := uc.tables.ReplaceMovies(ctx, tables.Movies); err != nil {
		return nil, fmt.Errorf("failed to replace movies: %w", err)
	}
	if err := uc.tables.ReplaceGenres(ctx, tables.Genres); err != nil {
		return nil, fmt.Errorf("failed to replace genres: %w", err)
	}
	if err := uc.tables.ReplaceMovieGenres(ctx, tables.MovieGenres); err != nil {
		return nil, fmt.Errorf("failed to replace movie_genres: %w", err)
	}
	if err := uc.tables.ReplaceCast(ctx, tables.Cast); err != nil {
		return nil, fmt.Errorf("failed to replace cast: %w", err)
	}
	if err := uc.tables.ReplaceCrew(ctx, tables.Crew); err != nil {
		return nil, fmt.Errorf("failed to replace crew: %w", err)
	}

	result.Movies = len(tables.Movies)
	result.Genres = len(tables.Genres)
	result.MovieGenres = len(tables.MovieGenres)
	result.Cast = len(tables.Cast)
	result.Crew = len(tables.Crew)

	uc.log.Infof("transformed and loaded %d movies (genres=%d links=%d cast=%d crew=%d)",
		result.Processed, result.Genres, result.MovieGenres, result.Cast, result.Crew)
	return result, nil
}

// MovieFromDetails builds a movies row from a detail payload.
func MovieFromDetails(details Document) (*MovieRow, error) {
	id, ok := details.Int64("id")
	if !ok || id == 0 {
		return nil, ErrMissingID
	}
	return &MovieRow{
		MovieID:     id,
		Title:       details.stringPtr("title"),
		Overview:    details.stringPtr("overview"),
		ReleaseDate: details.stringPtr("release_date"),
		Popularity:  details.float64Ptr("popularity"),
		VoteAverage: details.float64Ptr("vote_average"),
		VoteCount:   details.int64Ptr("vote_count"),
		Runtime:     details.int64Ptr("runtime"),
		Budget:      details.int64Ptr("budget"),
		Revenue:     details.int64Ptr("revenue"),
		Status:      details.stringPtr("status"),
		Language:    details.stringPtr("original_language"),
	}, nil
}

// GenresFromDetails expands the genre list of a detail payload.
func GenresFromDetails(movieID int64, details Document) ([]*GenreRow, []*MovieGenreLink) {
	var genres []*GenreRow
	var links []*MovieGenreLink
	for _, g := range details.Documents("genres") {
		id, ok := g.Int64("id")
		if !ok {
			continue
		}
		name, _ := g.String("name")
		genres = append(genres, &GenreRow{GenreID: id, GenreName: name})
		links = append(links, &MovieGenreLink{MovieID: movieID, GenreID: id})
	}
	return genres, links
}

// CreditsRows expands a credits payload into one row per credited person.
func CreditsRows(movieID int64, credits Document) ([]*CastRow, []*CrewRow) {
	var cast []*CastRow
	for _, c := range credits.Documents("cast") {
		id, ok := c.Int64("id")
		if !ok {
			continue
		}
		cast = append(cast, &CastRow{
			MovieID:       movieID,
			ActorID:       id,
			ActorName:     c.stringPtr("name"),
			CharacterName: c.stringPtr("character"),
			Gender:        c.int64Ptr("gender"),
			Popularity:    c.float64Ptr("popularity"),
		})
	}

	var crew []*CrewRow
	for _, c := range credits.Documents("crew") {
		id, ok := c.Int64("id")
		if !ok {
			continue
		}
		crew = append(crew, &CrewRow{
			MovieID:    movieID,
			PersonID:   id,
			Name:       c.stringPtr("name"),
			Job:        c.stringPtr("job"),
			Department: c.stringPtr("department"),
		})
	}
	return cast, crew
}

// DedupMovies keeps the first row for each movie id.
func DedupMovies(rows []*MovieRow) []*MovieRow {
	seen := make(map[int64]struct{}, len(rows))
	out := make([]*MovieRow, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.MovieID]; ok {
			continue
		}
		seen[r.MovieID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// DedupGenres keeps the first row for each genre id.
func DedupGenres(rows []*GenreRow) []*GenreRow {
	seen := make(map[int64]struct{}, len(rows))
	out := make([]*GenreRow, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.GenreID]; ok {
			continue
		}
		seen[r.GenreID] = struct{}{}
		out = append(out, r)
	}
	return out
}
