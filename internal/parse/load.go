package parse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-logr/logr"
	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/eqfields/internal/lang"
	"github.com/phobologic/eqfields/internal/model"
)

// LoadOptions controls LoadFiles.
type LoadOptions struct {
	// Workers bounds concurrent parsing; <= 0 means GOMAXPROCS.
	Workers int
	// MaxFileSize skips larger files; <= 0 means no limit.
	MaxFileSize int64
	Log         logr.Logger
}

// LoadFiles parses the Java files at paths (relative to root) into a new
// Program. Unreadable and oversized files are skipped with a log message;
// only cancellation and query compilation failures are errors.
func LoadFiles(ctx context.Context, root string, paths []string, opts LoadOptions) (*Program, error) {
	log := opts.Log
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	query, err := lang.Java.GetClassQuery()
	if err != nil {
		return nil, fmt.Errorf("java query: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	work := make(chan string)
	results := make([]*model.File, len(paths))
	index := make(map[string]int, len(paths))
	for i, p := range paths {
		index[p] = i
	}

	g, ctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			// Each goroutine gets its own parser
			parser := lang.Java.NewParser()

			for rel := range work {
				f, err := loadOne(ctx, parser, query, root, rel, opts.MaxFileSize, log)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					log.Info("skipping file", "path", rel, "reason", err.Error())
					continue
				}
				results[index[rel]] = f
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(work)
		for _, p := range paths {
			select {
			case work <- p:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var files []*model.File
	for _, f := range results {
		if f != nil {
			files = append(files, f)
		}
	}
	prog := NewProgram()
	prog.Add(files...)
	return prog, nil
}

func loadOne(ctx context.Context, parser *sitter.Parser, query *sitter.Query, root, rel string, maxSize int64, log logr.Logger) (*model.File, error) {
	abs := filepath.Join(root, rel)
	if maxSize > 0 {
		fi, err := os.Stat(abs)
		if err == nil && fi.Size() > maxSize {
			return nil, fmt.Errorf("larger than %d bytes", maxSize)
		}
	}

	source, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	f, err := ParseFile(ctx, parser, query, source, rel)
	if err != nil {
		return nil, err
	}
	if f.Errors > 0 {
		log.Info("syntax errors, results may be incomplete", "path", rel, "errors", f.Errors)
	}
	log.V(1).Info("parsed file", "path", rel, "classes", len(f.AllClasses()))
	return f, nil
}
