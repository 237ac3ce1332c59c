package engine

import (
	"context"

	"media-json/internal/logging"
	"media-json/internal/source"

	"golang.org/x/sync/errgroup"
)

// Run aggregates assets into one document.
//
// With one worker every asset is processed completely before the next. With
// more, assets are first classified in order, images are then decoded by a
// bounded pool, and the results are applied to the tree in input order
// again, so the document does not depend on the worker count.
func Run(ctx context.Context, assets []source.Asset, opts Options) (*Result, error) {
	rc := NewRunContext(opts)
	logging.Debug("Run %s: %d inputs, %d workers", rc.ID, len(assets), rc.opts.Workers)

	if rc.opts.Workers <= 1 {
		for _, a := range assets {
			if err := rc.Process(ctx, a); err != nil {
				return nil, err
			}
		}
		return rc.Finish()
	}

	jobs := make([]*job, 0, len(assets))
	for _, a := range assets {
		if j, ok := rc.prepare(a); ok {
			jobs = append(jobs, j)
		}
	}

	results := make([]measurement, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rc.opts.Workers)
	for i, j := range jobs {
		if !j.measure {
			continue
		}
		g.Go(func() error {
			if err := rc.waitForMemory(gctx); err != nil {
				return err
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = rc.measure(gctx, j)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, j := range jobs {
		rc.install(j)
		rc.complete(j, results[i])
	}
	return rc.Finish()
}
