package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/needs-tools/needschema/internal/cli/config"
	"github.com/needs-tools/needschema/internal/cli/ui"
	"github.com/needs-tools/needschema/internal/compiler/errors"
)

func newInitCommand(a *app) *cobra.Command {
	var (
		dir   string
		yes   bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a needschema.yaml",
		Long: `Ask for the metamodel location and compile settings, then write
needschema.yaml. Use --yes to accept the defaults without prompting.`,
		Example: `  needschema init
  needschema init --yes --dir docs`,
		Args: cobra.NoArgs,
		// an unreadable configuration must not prevent replacing it
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setupLogger()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.Exists(dir) && !force {
				return fmt.Errorf("%s already exists in %s (use --force to overwrite)", config.FileName, dir)
			}

			cfg := config.Defaults()
			cfg.Inputs = []string{"needs.json"}
			cfg.Output = "schema.json"
			if !yes {
				if err := askConfig(cfg); err != nil {
					return err
				}
			}

			path, err := config.Write(dir, cfg)
			if err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(), "Created "+path, a.noColor)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to create needschema.yaml in")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept the defaults without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing needschema.yaml")

	return cmd
}

func askConfig(cfg *config.Config) error {
	input := cfg.Inputs[0]
	if err := survey.AskOne(&survey.Input{
		Message: "Metamodel file (needs.json or YAML):",
		Default: input,
	}, &input, survey.WithValidator(survey.Required)); err != nil {
		return err
	}
	cfg.Inputs = []string{input}

	if err := survey.AskOne(&survey.Input{
		Message: "Schema output file:",
		Default: cfg.Output,
	}, &cfg.Output, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	if err := survey.AskOne(&survey.Select{
		Message: "Reference policy:",
		Options: []string{string(errors.PolicyLenient), string(errors.PolicyStrict)},
		Default: cfg.Policy,
		Description: func(value string, index int) string {
			if value == string(errors.PolicyStrict) {
				return "fail on dangling references"
			}
			return "report and drop dangling references"
		},
	}, &cfg.Policy); err != nil {
		return err
	}

	return survey.AskOne(&survey.Confirm{
		Message: "Write compact JSON?",
		Default: cfg.Compact,
	}, &cfg.Compact)
}
