package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/needs-tools/needschema/internal/cli/ui"
	"github.com/needs-tools/needschema/internal/compiler/batch"
	"github.com/needs-tools/needschema/internal/compiler/cache"
	"github.com/needs-tools/needschema/internal/compiler/schema"
)

func newCompileCommand(a *app) *cobra.Command {
	var (
		flags   compileFlags
		output  string
		asJSON  bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "compile [metamodel...]",
		Short: "Compile metamodels into JSON Schema",
		Long: `Compile one or more metamodels into schema documents.

With a single metamodel the document goes to --output, or to stdout when
--output is empty or "-". With several metamodels --output names a
directory that receives one <name>.schema.json per input.

Inputs default to the "input" list of needschema.yaml.`,
		Example: `  needschema compile needs.json
  needschema compile needs.json -o schema.json --strict
  needschema compile a.json b.yaml -o build/schemas --workers 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := a.inputs(args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("output") {
				output = a.cfg.Output
			}
			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.Workers
			}
			s := a.settings(cmd, &flags)

			if len(inputs) == 1 {
				return a.compileSingle(cmd, inputs[0], output, s, asJSON)
			}
			if output == "-" {
				return fmt.Errorf("cannot write %d schemas to stdout; pass an output directory", len(inputs))
			}
			return a.compileMany(cmd, inputs, output, s, workers, asJSON)
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, or directory with several inputs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Report the outcome as JSON")
	cmd.Flags().IntVar(&workers, "workers", 0, "Metamodels compiled in parallel (0 = one per CPU)")

	return cmd
}

func (a *app) compileSingle(cmd *cobra.Command, input, output string, s cache.Settings, asJSON bool) error {
	toStdout := output == "" || output == "-"
	// the schema owns stdout when it is written there
	reportOut := cmd.OutOrStdout()
	if toStdout {
		reportOut = cmd.ErrOrStderr()
	}

	var results []*batch.Result
	err := a.progress(cmd.ErrOrStderr(), "Compiling "+input, asJSON, func() error {
		var err error
		results, err = batch.Compile(cmd.Context(), []string{input}, batch.Options{
			Workers: 1,
			Policy:  s.Policy,
			Logger:  a.logger,
			Format:  s.Format,
		})
		return err
	})
	if err != nil {
		return a.reportLoadError(reportOut, err, asJSON)
	}

	res := results[0]
	diags := res.Diagnostics()
	report := ui.Report{Success: !diags.HasErrors(), Input: input, Diagnostics: diags}

	if report.Success {
		if toStdout {
			data, err := schema.Encode(res.Compiled.Document, s.Format)
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return err
			}
		} else {
			if err := schema.WriteToFile(res.Compiled.Document, output, s.Format); err != nil {
				return err
			}
			report.Output = output
		}
	}

	if asJSON {
		if err := ui.WriteJSON(reportOut, report); err != nil {
			return err
		}
	} else {
		a.writeReport(reportOut, report, res.Compiled)
	}

	if !report.Success {
		return errCompileFailed
	}
	return nil
}

func (a *app) compileMany(cmd *cobra.Command, inputs []string, outDir string, s cache.Settings, workers int, asJSON bool) error {
	if outDir == "" {
		outDir = "."
	}
	out := cmd.OutOrStdout()

	var results []*batch.Result
	err := a.progress(cmd.ErrOrStderr(), fmt.Sprintf("Compiling %d metamodels", len(inputs)), asJSON, func() error {
		var err error
		results, err = batch.Compile(cmd.Context(), inputs, batch.Options{
			Workers: workers,
			Policy:  s.Policy,
			Logger:  a.logger,
			OutDir:  outDir,
			Format:  s.Format,
		})
		return err
	})
	if err != nil {
		return a.reportLoadError(out, err, asJSON)
	}

	failed := false
	reports := make([]ui.Report, 0, len(results))
	for _, res := range results {
		diags := res.Diagnostics()
		report := ui.Report{
			Success:     !diags.HasErrors(),
			Input:       res.Path,
			Output:      res.Output,
			Diagnostics: diags,
		}
		if !report.Success {
			failed = true
		}
		reports = append(reports, report)
	}

	if asJSON {
		if err := ui.WriteJSON(out, reports...); err != nil {
			return err
		}
	} else {
		for i, report := range reports {
			a.writeReport(out, report, results[i].Compiled)
		}
	}

	if failed {
		return errCompileFailed
	}
	return nil
}

// writeReport prints the human-readable outcome of one input
func (a *app) writeReport(w io.Writer, report ui.Report, compiled *schema.Result) {
	if len(report.Diagnostics) > 0 {
		ui.WriteDiagnostics(w, report.Diagnostics, ui.DiagnosticOptions{NoColor: a.noColor})
	}

	if !report.Success {
		errCount, _, _ := report.Diagnostics.ErrorCount()
		fmt.Fprint(w, ui.CompileFailed(report.Input, errCount, a.noColor))
		return
	}

	target := report.Output
	if target == "" {
		target = "stdout"
	}
	ui.WriteSuccess(w, fmt.Sprintf("%s → %s (%d schemas, %d definitions)",
		report.Input, target, len(compiled.Document.Schemas), len(compiled.Document.Defs)), a.noColor)
}

func (a *app) reportLoadError(w io.Writer, err error, asJSON bool) error {
	if asJSON {
		if jsonErr := ui.WriteJSON(w, ui.Report{Success: false, Error: err.Error()}); jsonErr != nil {
			return jsonErr
		}
	} else {
		fmt.Fprint(w, ui.LoadError("", err, a.noColor))
	}
	return errCompileFailed
}
