package commands

import (
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/needs-tools/needschema/internal/cli/ui"
	"github.com/needs-tools/needschema/internal/compiler/cache"
	"github.com/needs-tools/needschema/internal/compiler/errors"
	"github.com/needs-tools/needschema/internal/compiler/schema"
)

// compileFlags are the flags that override the compile settings of needschema.yaml
type compileFlags struct {
	strict  bool
	compact bool
	gzip    bool
}

// register adds --strict, and --compact/--gzip when the command writes schemas
func (f *compileFlags) register(cmd *cobra.Command, format bool) {
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Fail on dangling references and malformed associations")
	if format {
		cmd.Flags().BoolVar(&f.compact, "compact", false, "Write the schema without indentation")
		cmd.Flags().BoolVar(&f.gzip, "gzip", false, "Gzip the written schema")
	}
}

// settings merges the configuration with the flags the user actually set
func (a *app) settings(cmd *cobra.Command, f *compileFlags) cache.Settings {
	s := cache.Settings{
		Policy: a.cfg.CompilePolicy(),
		Format: schema.Format{Compact: a.cfg.Compact, Gzip: a.cfg.Gzip},
	}
	if cmd.Flags().Changed("strict") {
		s.Policy = errors.PolicyLenient
		if f.strict {
			s.Policy = errors.PolicyStrict
		}
	}
	if cmd.Flags().Changed("compact") {
		s.Format.Compact = f.compact
	}
	if cmd.Flags().Changed("gzip") {
		s.Format.Gzip = f.gzip
	}
	return s
}

// progress runs fn behind a spinner when the terminal shows colors
func (a *app) progress(w io.Writer, message string, quiet bool, fn func() error) error {
	if quiet || a.noColor || color.NoColor {
		return fn()
	}
	return ui.WithSpinner(w, message, a.noColor, fn)
}
