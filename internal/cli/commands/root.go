package commands

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/needs-tools/needschema/internal/cli/config"
	"github.com/needs-tools/needschema/internal/cli/ui"
	"github.com/needs-tools/needschema/internal/logging"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// errCompileFailed is returned once the findings were already printed
var errCompileFailed = errors.New("compilation failed")

// app is the state shared by all subcommands, filled in before any of them runs
type app struct {
	configDir string
	verbose   bool
	logJSON   bool
	noColor   bool

	cfg    *config.Config
	logger *zap.Logger
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := a.setupLogger(); err != nil {
		return err
	}

	var err error
	if a.configDir != "" {
		a.cfg, err = config.LoadFrom(a.configDir)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), a.noColor))
		return errCompileFailed
	}

	a.logger.Debug("configuration loaded",
		zap.String("file", a.cfg.File),
		zap.String("policy", a.cfg.Policy),
	)
	return nil
}

func (a *app) setupLogger() error {
	if a.noColor {
		color.NoColor = true
	}

	logger, err := logging.New(logging.Options{Verbose: a.verbose, JSON: a.logJSON})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger
	return nil
}

// inputs returns args, falling back to the configured inputs
func (a *app) inputs(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(a.cfg.Inputs) > 0 {
		return a.cfg.Inputs, nil
	}
	return nil, fmt.Errorf("no metamodel given: pass a file or set input in %s", config.FileName)
}

func (a *app) teardown() {
	if a.logger != nil {
		logging.Sync(a.logger)
	}
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "needschema",
		Short: "Compile sphinx-needs metamodels into JSON Schema",
		Long: color.CyanString(`needschema - metamodel to JSON Schema compiler

needschema reads a metamodel exported from sphinx-needs (needs.json) or
written in YAML, and produces one JSON document holding reusable
definitions and an ordered list of schemas. A validator uses it to check
every need record: its own fields (local rules) and the types of the
records it links to (network rules).`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configDir, "config-dir", "", "Directory holding needschema.yaml (default: working directory)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Show debug logs")
	flags.BoolVar(&a.logJSON, "log-json", false, "Write logs as JSON")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewCompletionCommand())
	rootCmd.AddCommand(newCompileCommand(a))
	rootCmd.AddCommand(newCheckCommand(a))
	rootCmd.AddCommand(newWatchCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newInitCommand(a))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the needschema version, Git commit, build date, and Go version",
		// version must work without a readable configuration
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				titleColor.DisableColor()
			}
			out := cmd.OutOrStdout()
			for _, row := range [][2]string{
				{"needschema version: ", Version},
				{"Git commit: ", GitCommit},
				{"Build date: ", BuildDate},
				{"Go version: ", goVer},
			} {
				titleColor.Fprint(out, row[0])
				fmt.Fprintln(out, row[1])
			}
		},
	}
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command until ctx is canceled
func ExecuteContext(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
