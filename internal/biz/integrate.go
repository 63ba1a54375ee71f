package biz

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"

	"movieetl/internal/metrics"
)

var releaseDateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// IntegrateResult is the observable summary of one integration run.
type IntegrateResult struct {
	Movies    int     `json:"movies"`
	Matched   int     `json:"matched"`
	MatchRate float64 `json:"match_rate"`
}

// IntegrateUseCase reconciles catalog movies with the external rating dataset.
type IntegrateUseCase struct {
	tables   MovieTableRepo
	datasets DatasetRepo
	log      *log.Helper
}

// NewIntegrateUseCase creates a new IntegrateUseCase instance
func NewIntegrateUseCase(tables MovieTableRepo, datasets DatasetRepo, logger log.Logger) *IntegrateUseCase {
	return &IntegrateUseCase{
		tables:   tables,
		datasets: datasets,
		log:      log.NewHelper(logger),
	}
}

// Integrate rebuilds movies_integrated from movies, title_basics and title_ratings.
func (uc *IntegrateUseCase) Integrate(ctx context.Context) (*IntegrateResult, error) {
	uc.log.Info("loading data...")
	movies, err := uc.tables.ListMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load movies: %w", err)
	}
	titles, err := uc.datasets.ListTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load external titles: %w", err)
	}
	ratings, err := uc.datasets.ListRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load external ratings: %w", err)
	}

	uc.log.Info("merging on title + year...")
	records := MergeMovies(movies, NewExternalIndex(titles, ratings))
	if err := uc.tables.ReplaceIntegrated(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to replace movies_integrated: %w", err)
	}

	result := &IntegrateResult{Movies: len(records)}
	for _, r := range records {
		if r.Tconst != nil {
			result.Matched++
		}
	}
	if result.Movies > 0 {
		result.MatchRate = float64(result.Matched) / float64(result.Movies)
	}
	metrics.MatchRate.Set(result.MatchRate)

	uc.log.Infof("integrated dataset created: %d movies", result.Movies)
	uc.log.Infof("external matched: %d / %d (match rate %.1f%%)", result.Matched, result.Movies, result.MatchRate*100)
	return result, nil
}

type titleYear struct {
	title string
	year  int64
}

type externalMatch struct {
	tconst string
	rating *float64
	votes  *int64
}

// ExternalIndex resolves (title, year) pairs to external ratings.
type ExternalIndex struct {
	byKey map[titleYear]*externalMatch
}

// NewExternalIndex left-joins titles with ratings on tconst and indexes the
// result by exact (primaryTitle, startYear). Titles with no usable year are
// not indexed. When several titles share a key the first one wins.
func NewExternalIndex(titles []*ExternalTitle, ratings []*ExternalRating) *ExternalIndex {
	byTconst := make(map[string]*ExternalRating, len(ratings))
	for _, r := range ratings {
		if _, ok := byTconst[r.Tconst]; !ok {
			byTconst[r.Tconst] = r
		}
	}

	idx := &ExternalIndex{byKey: make(map[titleYear]*externalMatch, len(titles))}
	for _, t := range titles {
		if t.PrimaryTitle == nil {
			continue
		}
		year := coerceInt(t.StartYear)
		if year == nil {
			continue
		}
		key := titleYear{title: *t.PrimaryTitle, year: *year}
		if _, ok := idx.byKey[key]; ok {
			continue
		}
		m := &externalMatch{tconst: t.Tconst}
		if r, ok := byTconst[t.Tconst]; ok {
			m.rating = coerceFloat(r.AverageRating)
			m.votes = coerceInt(r.NumVotes)
		}
		idx.byKey[key] = m
	}
	return idx
}

func (idx *ExternalIndex) lookup(title *string, year *int64) *externalMatch {
	if title == nil || year == nil {
		return nil
	}
	return idx.byKey[titleYear{title: *title, year: *year}]
}

// MergeMovies produces exactly one integrated record per movie.
func MergeMovies(movies []*MovieRow, idx *ExternalIndex) []*IntegratedMovie {
	out := make([]*IntegratedMovie, 0, len(movies))
	for _, m := range movies {
		rec := &IntegratedMovie{
			MovieID:     m.MovieID,
			Title:       m.Title,
			ReleaseDate: m.ReleaseDate,
			Year:        ReleaseYear(m.ReleaseDate),
			Budget:      m.Budget,
			Revenue:     m.Revenue,
			TMDBRating:  m.VoteAverage,
			TMDBVotes:   m.VoteCount,
		}
		rec.Profit, rec.ROI = Financials(m.Budget, m.Revenue)

		if match := idx.lookup(rec.Title, rec.Year); match != nil {
			tconst := match.tconst
			rec.Tconst = &tconst
			rec.IMDbRating = match.rating
			rec.IMDbVotes = match.votes
		}
		out = append(out, rec)
	}
	return out
}

// Financials returns revenue-budget and the ROI percentage rounded to two
// decimals. ROI is nil when the budget is zero or unknown.
func Financials(budget, revenue *int64) (profit *int64, roi *float64) {
	if budget == nil || revenue == nil {
		return nil, nil
	}
	p := *revenue - *budget
	profit = &p
	if *budget == 0 {
		return profit, nil
	}
	r, _ := decimal.NewFromInt(p).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(*budget), 2).
		Float64()
	return profit, &r
}

// ReleaseYear extracts the year of a release date; unparseable dates yield nil.
func ReleaseYear(date *string) *int64 {
	if date == nil {
		return nil
	}
	s := strings.TrimSpace(*date)
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y := int64(t.Year())
			return &y
		}
	}
	return nil
}

func coerceFloat(s *string) *float64 {
	if s == nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func coerceInt(s *string) *int64 {
	f := coerceFloat(s)
	if f == nil || *f != math.Trunc(*f) {
		return nil
	}
	n := int64(*f)
	return &n
}
