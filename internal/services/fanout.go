package services

import (
	"context"

	"github.com/alimgiray/storyhub/internal/models"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds fan-out when no limit is configured
const DefaultConcurrency = 8

// settleAll runs fn for every id with at most limit calls in flight. Every id
// is attempted; a failure never cancels the others.
func settleAll(ctx context.Context, ids []string, limit int, fn func(ctx context.Context, id string) error) *models.BatchResult {
	result := &models.BatchResult{}
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := fn(ctx, id); err != nil {
				result.AddFailure(id, err)
				return nil
			}
			result.AddSuccess(id)
			return nil
		})
	}
	_ = g.Wait()
	return result
}
