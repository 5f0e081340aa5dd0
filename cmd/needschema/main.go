package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/needs-tools/needschema/internal/cli/commands"
)

var (
	// Version information - will be set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

func main() {
	commands.Version = Version
	commands.GitCommit = GitCommit
	commands.BuildDate = BuildDate
	commands.GoVersion = GoVersion

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
