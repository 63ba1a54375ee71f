package biz

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// Tables read by the consistency report.
const (
	TableMovies     = "movies"
	TableCast       = "cast"
	TableCrew       = "crew"
	TableIntegrated = "movies_integrated"
)

// ValidateUseCase builds the consistency report over staging and relational stores.
type ValidateUseCase struct {
	staging StagingRepo
	tables  MovieTableRepo
	log     *log.Helper
}

// NewValidateUseCase creates a new ValidateUseCase instance
func NewValidateUseCase(staging StagingRepo, tables MovieTableRepo, logger log.Logger) *ValidateUseCase {
	return &ValidateUseCase{
		staging: staging,
		tables:  tables,
		log:     log.NewHelper(logger),
	}
}

func (uc *ValidateUseCase) Report(ctx context.Context) (*ConsistencyReport, error) {
	staged, err := uc.staging.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count staged movies: %w", err)
	}

	report := &ConsistencyReport{StagedMovies: staged}
	counts := []struct {
		table string
		dst   *int64
	}{
		{TableMovies, &report.Movies},
		{TableCast, &report.Cast},
		{TableCrew, &report.Crew},
		{TableIntegrated, &report.Integrated},
	}
	for _, c := range counts {
		n, err := uc.tables.CountRows(ctx, c.table)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
		*c.dst = n
	}

	report.DuplicateMovieID, err = uc.tables.DuplicateMovieIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicates: %w", err)
	}
	if len(report.DuplicateMovieID) > 0 {
		uc.log.Warnf("duplicate movie ids found: %v", report.DuplicateMovieID)
	}
	return report, nil
}
