package score

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Result pairs a scored game with the per-record error, if any.
type Result struct {
	Game ScoredGame
	Err  error
}

// EstimateAll scores every aggregate with at most workers goroutines.
// Results keep input order. An invalid config fails the whole batch; an
// invalid record only fails its own Result.
func EstimateAll(ctx context.Context, aggs []RatingAggregate, cfg PriorConfig, workers int) ([]Result, error) {
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("score.EstimateAll: %w", err)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(aggs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range aggs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			game, err := Estimate(aggs[i], cfg)
			results[i] = Result{Game: game, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score.EstimateAll: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("score.EstimateAll: %w", err)
	}
	return results, nil
}
