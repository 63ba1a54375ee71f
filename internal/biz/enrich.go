package biz

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-kratos/kratos/v2/log"
)

func DetailPath(id int64) string {
	return fmt.Sprintf("/movie/%d", id)
}

func CreditsPath(id int64) string {
	return fmt.Sprintf("/movie/%d/credits", id)
}

// EnrichResult summarizes one enrichment run.
type EnrichResult struct {
	Movies        int `json:"movies"`
	Details       int `json:"details"`
	Credits       int `json:"credits"`
	DetailErrors  int `json:"detail_errors"`
	CreditsErrors int `json:"credits_errors"`
}

// EnrichUseCase adds detail and credits payloads to every staged movie.
type EnrichUseCase struct {
	catalog CatalogClient
	staging StagingRepo
	log     *log.Helper
}

// NewEnrichUseCase creates a new EnrichUseCase instance
func NewEnrichUseCase(catalog CatalogClient, staging StagingRepo, logger log.Logger) *EnrichUseCase {
	return &EnrichUseCase{
		catalog: catalog,
		staging: staging,
		log:     log.NewHelper(logger),
	}
}

func (uc *EnrichUseCase) Enrich(ctx context.Context) (*EnrichResult, error) {
	ids, err := uc.staging.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list staged movies: %w", err)
	}

	result := &EnrichResult{Movies: len(ids)}
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// details and credits are independent: one failing never blocks the other
		details, ok := uc.fetch(ctx, DetailPath(id))
		if ok {
			if err := uc.staging.UpsertDetails(ctx, id, details); err != nil {
				return result, fmt.Errorf("failed to stage details for movie %d: %w", id, err)
			}
			result.Details++
		} else {
			result.DetailErrors++
		}

		credits, ok := uc.fetch(ctx, CreditsPath(id))
		if ok {
			if err := uc.staging.UpsertCredits(ctx, id, credits); err != nil {
				return result, fmt.Errorf("failed to stage credits for movie %d: %w", id, err)
			}
			result.Credits++
		} else {
			result.CreditsErrors++
		}

		uc.log.Infof("enriched %d/%d", i+1, len(ids))
	}

	uc.log.Infof("enrichment complete: movies=%d details=%d credits=%d", result.Movies, result.Details, result.Credits)
	return result, nil
}

func (uc *EnrichUseCase) fetch(ctx context.Context, path string) (Document, bool) {
	status, payload, err := uc.catalog.Fetch(ctx, path)
	if err != nil {
		uc.log.Warnf("request %s failed: %v", path, err)
		return nil, false
	}
	if status != http.StatusOK {
		uc.log.Warnf("request %s: status %d", path, status)
		return nil, false
	}
	return payload, true
}
