package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/needs-tools/needschema/internal/cli/ui"
	"github.com/needs-tools/needschema/internal/compiler/schema"
	"github.com/needs-tools/needschema/internal/metamodel/load"
)

func newCheckCommand(a *app) *cobra.Command {
	var (
		flags   compileFlags
		asJSON  bool
		asTable bool
	)

	cmd := &cobra.Command{
		Use:   "check [metamodel...]",
		Short: "Report metamodel findings without writing a schema",
		Long: `Compile metamodels and list every finding: dangling references,
malformed associations, invalid identifiers and overwritten definitions.

Dangling references come with the closest known node ids as suggestions.
The command fails when any input has errors under the active policy.`,
		Example: `  needschema check needs.json
  needschema check needs.json --strict --table`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := a.inputs(args)
			if err != nil {
				return err
			}
			s := a.settings(cmd, &flags)
			out := cmd.OutOrStdout()

			failed := false
			reports := make([]ui.Report, 0, len(inputs))
			for _, input := range inputs {
				loaded, err := load.File(input)
				if err != nil {
					failed = true
					reports = append(reports, ui.Report{Input: input, Error: err.Error()})
					if !asJSON {
						fmt.Fprint(out, ui.LoadError("", err, a.noColor))
					}
					continue
				}

				res, _ := schema.Compile(loaded.Table, schema.WithPolicy(s.Policy), schema.WithLogger(a.logger))
				diags := append(loaded.Diagnostics, res.Diagnostics.WithFile(input)...)
				report := ui.Report{Success: !diags.HasErrors(), Input: input, Diagnostics: diags}
				reports = append(reports, report)
				if !report.Success {
					failed = true
				}
				if asJSON {
					continue
				}

				nodes := loaded.Table.Nodes()
				known := make([]string, len(nodes))
				for i, n := range nodes {
					known[i] = n.ID()
				}

				ui.Header(out, input, a.noColor)
				if asTable && len(diags) > 0 {
					ui.WriteDiagnosticTable(out, diags, a.noColor)
					fmt.Fprintln(out, ui.Summary(diags, a.noColor))
				} else {
					ui.WriteDiagnostics(out, diags, ui.DiagnosticOptions{NoColor: a.noColor, KnownIDs: known})
				}
			}

			if asJSON {
				if err := ui.WriteJSON(out, reports...); err != nil {
					return err
				}
			}
			if failed {
				return errCompileFailed
			}
			return nil
		},
	}

	flags.register(cmd, false)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Report findings as JSON")
	cmd.Flags().BoolVar(&asTable, "table", false, "List findings as a table")

	return cmd
}
