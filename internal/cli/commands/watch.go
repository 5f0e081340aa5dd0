package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/needs-tools/needschema/internal/cli/ui"
	"github.com/needs-tools/needschema/internal/compiler/batch"
	"github.com/needs-tools/needschema/internal/compiler/cache"
	"github.com/needs-tools/needschema/internal/watch"
)

func newWatchCommand(a *app) *cobra.Command {
	var (
		flags    compileFlags
		outDir   string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [metamodel...]",
		Short: "Recompile metamodels whenever they change",
		Long: `Compile the metamodels, then watch them and rebuild every time one is
saved. Each input writes <name>.schema.json into the output directory.
Inputs with errors keep their previous schema file.`,
		Example: `  needschema watch needs.json
  needschema watch docs/needs.json -o build --debounce 1s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := a.inputs(args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("output") {
				outDir = a.cfg.Output
			}
			if outDir == "" || outDir == "-" {
				outDir = "."
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = a.cfg.Watch.Debounce
			}
			s := a.settings(cmd, &flags)

			paths, names, err := absInputs(inputs)
			if err != nil {
				return err
			}

			targets := make(map[string]string, len(paths))
			for i, name := range batch.OutputNames(paths, s.Format) {
				targets[paths[i]] = filepath.Join(outDir, name)
			}

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			onBuild := func(b watch.Build) {
				mu.Lock()
				defer mu.Unlock()
				a.writeBuild(out, b, names[b.Path], targets[b.Path])
			}

			rebuilder := watch.NewRebuilder(cache.New(a.logger), s, a.logger, onBuild)
			rebuilder.Build(paths)

			watcher, err := watch.NewFileWatcher(paths, debounce, a.logger, func(changed []string) {
				rebuilder.Build(changed)
			})
			if err != nil {
				return err
			}

			fmt.Fprint(out, ui.Info(fmt.Sprintf("Watching %d metamodel(s). Press Ctrl+C to stop.", len(paths)), a.noColor))
			return watcher.Run(cmd.Context())
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Directory receiving the schema files")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a rebuild")

	return cmd
}

// absInputs resolves inputs to absolute paths, remembering how the user named them
func absInputs(inputs []string) ([]string, map[string]string, error) {
	paths := make([]string, 0, len(inputs))
	names := make(map[string]string, len(inputs))
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve %s: %w", in, err)
		}
		if _, seen := names[abs]; seen {
			continue
		}
		paths = append(paths, abs)
		names[abs] = in
	}
	return paths, names, nil
}

// writeBuild reports a rebuild and stores its schema at target when it succeeded
func (a *app) writeBuild(w io.Writer, b watch.Build, name, target string) {
	if name == "" {
		name = b.Path
	}
	if b.Err != nil {
		fmt.Fprint(w, ui.LoadError("", b.Err, a.noColor))
		return
	}

	diags := b.Entry.Result.Diagnostics
	if len(diags) > 0 {
		ui.WriteDiagnostics(w, diags, ui.DiagnosticOptions{NoColor: a.noColor})
	}
	if b.Failed() {
		errCount, _, _ := diags.ErrorCount()
		fmt.Fprint(w, ui.CompileFailed(name, errCount, a.noColor))
		return
	}
	if b.Cached {
		fmt.Fprint(w, ui.Info(name+" unchanged", a.noColor))
		return
	}

	if err := writeOutput(target, b.Entry.Output); err != nil {
		a.logger.Error("failed to write schema", zap.String("path", target), zap.Error(err))
		fmt.Fprint(w, ui.Warning(err.Error(), a.noColor))
		return
	}
	ui.WriteSuccess(w, fmt.Sprintf("%s → %s (%s)", name, target, b.Duration.Round(time.Millisecond)), a.noColor)
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
