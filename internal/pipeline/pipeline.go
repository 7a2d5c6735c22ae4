// Package pipeline runs classification over a record table and
// assembles the row-aligned result table.
package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/biorecs/occuncertainty/internal/boundary"
	"github.com/biorecs/occuncertainty/internal/classify"
	"github.com/biorecs/occuncertainty/internal/model"
)

// defaultWorkers bounds per-record concurrency when the caller does not
// choose one.
const defaultWorkers = 8

// progressEvery controls how often verbose progress is logged.
const progressEvery = 10000

// Options tune a pipeline run.
type Options struct {
	// Workers is the per-record concurrency. Classification is
	// embarrassingly parallel; the only shared state is the read-only
	// boundary index.
	Workers int
	// Verbose enables progress logging.
	Verbose bool
}

// Pipeline classifies record batches against a prepared boundary source.
type Pipeline struct {
	cls *classify.Classifier
}

// New validates the thresholds and builds a pipeline.
func New(src boundary.Source, th classify.Thresholds) (*Pipeline, error) {
	cls, err := classify.New(src, th)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cls: cls}, nil
}

// Run classifies every record and returns one result per input row, in
// input order. Rows never participate-and-vanish: even records excluded
// from all geometry come back, as unusable. A boundary-source failure
// aborts the whole batch.
func (p *Pipeline) Run(ctx context.Context, records []model.Record, opts Options) ([]model.Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	results := make([]model.Result, len(records))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "pipeline: cancelled")
			}

			res, err := p.cls.Classify(gctx, &records[i])
			if err != nil {
				return eris.Wrapf(err, "pipeline: classify record %s", records[i].ID)
			}
			results[i] = res

			if n := done.Add(1); opts.Verbose && n%progressEvery == 0 {
				zap.L().Info("pipeline: progress",
					zap.Int64("classified", n),
					zap.Int("total", len(records)),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.Verbose {
		zap.L().Info("pipeline: batch complete", zap.Int("records", len(records)))
	}
	return results, nil
}
