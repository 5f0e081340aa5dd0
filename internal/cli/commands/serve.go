package commands

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/needs-tools/needschema/internal/cli/ui"
	"github.com/needs-tools/needschema/internal/compiler/cache"
	"github.com/needs-tools/needschema/internal/server"
	"github.com/needs-tools/needschema/internal/watch"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		flags    compileFlags
		addr     string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve [metamodel]",
		Short: "Serve the compiled schema over HTTP and recompile on change",
		Long: `Compile a metamodel and serve the result:

  GET /schema          the whole document
  GET /defs/{key}      one definition
  GET /schemas/{id}    one schema entry
  GET /diagnostics     findings of the last compilation
  GET /healthz         readiness
  GET /events          websocket stream of rebuild events

The metamodel is watched. A rebuild that fails to load, or that has errors
under --strict, keeps the previous document in service.`,
		Example: `  needschema serve needs.json
  needschema serve needs.json --addr :9000 --strict`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := a.inputs(args)
			if err != nil {
				return err
			}
			if len(inputs) != 1 {
				return fmt.Errorf("serve takes one metamodel, %d configured", len(inputs))
			}
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.Serve.Addr
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = a.cfg.Watch.Debounce
			}
			s := a.settings(cmd, &flags)
			// responses are declared application/schema+json
			s.Format.Gzip = false

			paths, names, err := absInputs(inputs)
			if err != nil {
				return err
			}

			srv := server.New(a.logger)
			out := cmd.OutOrStdout()
			var mu sync.Mutex
			onBuild := func(b watch.Build) {
				srv.Update(snapshotOf(b, names[b.Path]))

				mu.Lock()
				defer mu.Unlock()
				switch {
				case b.Err != nil:
					fmt.Fprint(out, ui.LoadError("", b.Err, a.noColor))
				case b.Failed():
					errCount, _, _ := b.Entry.Result.Diagnostics.ErrorCount()
					fmt.Fprint(out, ui.Warning(fmt.Sprintf("%s has %d error(s), keeping the previous schema", names[b.Path], errCount), a.noColor))
				default:
					ui.WriteSuccess(out, fmt.Sprintf("%s compiled (%d schemas)", names[b.Path], len(b.Entry.Result.Document.Schemas)), a.noColor)
				}
			}

			rebuilder := watch.NewRebuilder(cache.New(a.logger), s, a.logger, onBuild)
			rebuilder.Build(paths)

			watcher, err := watch.NewFileWatcher(paths, debounce, a.logger, func(changed []string) {
				rebuilder.Build(changed)
			})
			if err != nil {
				return err
			}
			if err := watcher.Start(); err != nil {
				return err
			}
			defer watcher.Stop()

			fmt.Fprint(out, ui.Info(fmt.Sprintf("Serving http://%s/schema", addr), a.noColor))
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	flags.register(cmd, false)
	cmd.Flags().BoolVar(&flags.compact, "compact", false, "Serve the schema without indentation")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from needschema.yaml, localhost:8765)")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a rebuild")

	return cmd
}

// snapshotOf turns a rebuild into what the server publishes
func snapshotOf(b watch.Build, name string) server.Snapshot {
	snap := server.Snapshot{Input: name, Err: b.Err, UpdatedAt: time.Now()}
	if b.Entry != nil {
		snap.Document = b.Entry.Result.Document
		snap.Output = b.Entry.Output
		snap.Diagnostics = b.Entry.Result.Diagnostics
	}
	return snap
}
