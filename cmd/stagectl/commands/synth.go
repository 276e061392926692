package commands

import (
	"github.com/rs/zerolog"
	"github.com/savaki/stagectl/internal/config"
	"github.com/savaki/stagectl/internal/di"
	"github.com/savaki/stagectl/internal/orchestrator"
	"github.com/urfave/cli/v2"
)

// SynthCommand returns the synth command
func SynthCommand(logger *zerolog.Logger, settings config.Settings, opts ...di.Option) *cli.Command {
	return &cli.Command{
		Name:  "synth",
		Usage: "Synthesize the cloud assembly for the current branch",
		Description: `Resolves the stage for the branch, checks the active AWS profile (outside CI)
and runs cdk synth.

Examples:
  # Synthesize every stack for the checked out branch
  stagectl synth

  # Synthesize a single stack for another branch
  stagectl synth --branch develop --stack mvp-foo-stack-dev`,
		Flags: []cli.Flag{
			branchFlag(),
			stackFlag(),
		},
		Action: func(c *cli.Context) error {
			container, err := newContainer(c, settings, opts...)
			if err != nil {
				return err
			}

			o, err := resolve[*orchestrator.Orchestrator](container)
			if err != nil {
				return err
			}

			logger.Info().
				Str("branch", o.Config().Branch).
				Str("stage", o.Config().Stage).
				Msg("Starting synth")

			return o.Synth(c.Context, withFlags(c, settings).Stack)
		},
	}
}
