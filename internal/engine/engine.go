// Package engine drives the field usage analyzer over a parsed program.
package engine

import (
	"context"
	"runtime"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/eqfields/internal/eqhash"
	"github.com/phobologic/eqfields/internal/model"
	"github.com/phobologic/eqfields/internal/parse"
)

// Engine visits every method declaration of a program with the analyzer.
type Engine struct {
	prog     *parse.Program
	analyzer *eqhash.Analyzer
	workers  int
	log      logr.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of concurrent method visits. n <= 0 means
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New returns an engine over prog.
func New(prog *parse.Program, analyzer *eqhash.Analyzer, opts ...Option) *Engine {
	e := &Engine{
		prog:     prog,
		analyzer: analyzer,
		workers:  runtime.GOMAXPROCS(0),
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run visits every method and returns the findings sorted by position. If
// ctx is cancelled the remaining visits are abandoned and ctx's error is
// returned.
func (e *Engine) Run(ctx context.Context) ([]model.Finding, error) {
	methods := e.prog.Methods()
	e.log.V(1).Info("scanning", "methods", len(methods), "workers", e.workers)

	var sink model.Collector
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, m := range methods {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e.analyzer.VisitMethod(m, &sink)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	findings := sink.Findings()
	e.log.Info("scan complete", "files", len(e.prog.Files()), "methods", len(methods), "findings", len(findings))
	return findings, nil
}
