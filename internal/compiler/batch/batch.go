// Package batch compiles several independent metamodels in parallel.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/needs-tools/needschema/internal/compiler/errors"
	"github.com/needs-tools/needschema/internal/compiler/schema"
	"github.com/needs-tools/needschema/internal/metamodel/load"
)

// Options configures a batch run
type Options struct {
	// Workers bounds the number of metamodels compiled at once.
	// Zero selects runtime.NumCPU().
	Workers int
	Policy  errors.Policy
	Logger  *zap.Logger
	// OutDir, when set, receives one <name>.schema.json per input that
	// compiled without errors.
	OutDir string
	Format schema.Format
}

// Result is the compilation of one input
type Result struct {
	Path string
	// Output is the written schema file, empty when nothing was written
	Output   string
	Compiled *schema.Result
}

// Diagnostics returns the load and compile findings of the input
func (r *Result) Diagnostics() errors.ErrorList {
	if r == nil || r.Compiled == nil {
		return nil
	}
	return r.Compiled.Diagnostics
}

// Compile loads and compiles every path. Results are returned in input
// order. A load or write failure cancels the remaining work and is returned;
// compile findings, including strict-mode errors, stay on the results.
func Compile(ctx context.Context, paths []string, opts Options) ([]*Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]*Result, len(paths))
	names := OutputNames(paths, opts.Format)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, path := range paths {
		i, path := i, path
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			res, err := compileOne(path, names[i], opts, logger)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	logger.Debug("batch compiled",
		zap.Int("inputs", len(paths)),
		zap.Int("workers", workers),
	)
	return results, nil
}

func compileOne(path, name string, opts Options, logger *zap.Logger) (*Result, error) {
	loaded, err := load.File(path)
	if err != nil {
		return nil, err
	}

	compiled, _ := schema.Compile(loaded.Table,
		schema.WithPolicy(opts.Policy),
		schema.WithLogger(logger.With(zap.String("input", path))),
	)
	compiled.Diagnostics = append(loaded.Diagnostics, compiled.Diagnostics.WithFile(path)...)

	res := &Result{Path: path, Compiled: compiled}
	if opts.OutDir != "" && !compiled.Diagnostics.HasErrors() {
		res.Output = filepath.Join(opts.OutDir, name)
		if err := schema.WriteToFile(compiled.Document, res.Output, opts.Format); err != nil {
			return nil, fmt.Errorf("write schema for %s: %w", path, err)
		}
	}
	return res, nil
}

// OutputName derives the schema file name of an input: needs.json becomes
// needs.schema.json (needs.schema.json.gz with gzip).
func OutputName(path string, f schema.Format) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".schema.json"
	if f.Gzip {
		name += ".gz"
	}
	return name
}

// OutputNames assigns every input a distinct file name. Inputs sharing a base
// name get a counter: needs.schema.json, needs_2.schema.json, ...
func OutputNames(paths []string, f schema.Format) []string {
	names := make([]string, len(paths))
	taken := make(map[string]bool, len(paths))
	for i, path := range paths {
		name := OutputName(path, f)
		for n := 2; taken[name]; n++ {
			base := filepath.Base(path)
			name = OutputName(fmt.Sprintf("%s_%d%s", strings.TrimSuffix(base, filepath.Ext(base)), n, filepath.Ext(base)), f)
		}
		taken[name] = true
		names[i] = name
	}
	return names
}
