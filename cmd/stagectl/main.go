package main

import (
	"context"
	"os"

	"github.com/savaki/stagectl/cmd/stagectl/commands"
	"github.com/savaki/stagectl/internal/config"
	"github.com/savaki/stagectl/internal/di"
	"github.com/segmentio/ksuid"
	"github.com/urfave/cli/v2"
)

func main() {
	settings := config.FromEnvironment()

	logger := di.ProvideLogger(settings).
		With().
		Str("run_id", ksuid.New().String()).
		Logger()
	ctx := logger.WithContext(context.Background())

	app := &cli.App{
		Name:  "stagectl",
		Usage: "Branch aware CDK deployment workflows",
		Description: `Resolves the stage, account and credential profile for the current git branch
and runs the CDK workflows against it.

  - synth and deploy any branch
  - destroy ephemeral stages, cleaning up log groups and queueing edge lambda cleanup
  - refresh MFA session token profiles
  - report what is deployed for a stage`,
		Commands: commands.All(&logger, settings),
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		if !settings.TestMode {
			os.Exit(1)
		}
	}
}
