package biz

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"

	"movieetl/internal/conf"
)

// ListingPath is the catalog listing endpoint for one page of a category.
func ListingPath(category string, page int) string {
	return fmt.Sprintf("/movie/%s?page=%d", category, page)
}

// CollectResult summarizes one collector run.
type CollectResult struct {
	Pages       int `json:"pages"`
	FailedPages int `json:"failed_pages"`
	Movies      int `json:"movies"`
	Dropped     int `json:"dropped"`
}

// CollectUseCase pages through a catalog listing and stages every item.
type CollectUseCase struct {
	catalog CatalogClient
	staging StagingRepo
	delay   time.Duration
	log     *log.Helper
}

// NewCollectUseCase creates a new CollectUseCase instance
func NewCollectUseCase(catalog CatalogClient, staging StagingRepo, c *conf.Pipeline, logger log.Logger) *CollectUseCase {
	return &CollectUseCase{
		catalog: catalog,
		staging: staging,
		delay:   c.PageDelay.AsDuration(),
		log:     log.NewHelper(logger),
	}
}

// Collect fetches pages 1..pages of category. Failed pages are skipped, only
// staging write failures abort the run.
func (uc *CollectUseCase) Collect(ctx context.Context, category string, pages int) (*CollectResult, error) {
	limit := rate.Inf
	if uc.delay > 0 {
		limit = rate.Every(uc.delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	result := &CollectResult{}
	for page := 1; page <= pages; page++ {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}
		result.Pages++

		status, payload, err := uc.catalog.Fetch(ctx, ListingPath(category, page))
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			uc.log.Warnf("failed page %d: %v", page, err)
			result.FailedPages++
			continue
		}
		if status != http.StatusOK {
			uc.log.Warnf("failed page %d: status %d", page, status)
			result.FailedPages++
			continue
		}

		items := payload.Documents("results")
		for _, item := range items {
			id, ok := item.Int64("id")
			if !ok {
				result.Dropped++
				uc.log.Debugf("page %d: dropping listing item: %v", page, ErrMissingID)
				continue
			}
			if err := uc.staging.UpsertListing(ctx, id, item); err != nil {
				return result, fmt.Errorf("failed to stage movie %d: %w", id, err)
			}
			result.Movies++
		}
		uc.log.Infof("fetched page %d, movies=%d", page, len(items))
	}

	uc.log.Infof("raw collection completed: pages=%d failed=%d movies=%d", result.Pages, result.FailedPages, result.Movies)
	return result, nil
}
