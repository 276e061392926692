package commands

import (
	"github.com/rs/zerolog"
	"github.com/savaki/stagectl/internal/config"
	"github.com/savaki/stagectl/internal/di"
	"github.com/savaki/stagectl/internal/orchestrator"
	"github.com/urfave/cli/v2"
)

// DeployCommand returns the deploy command
func DeployCommand(logger *zerolog.Logger, settings config.Settings, opts ...di.Option) *cli.Command {
	return &cli.Command{
		Name:  "deploy",
		Usage: "Deploy the synthesized stacks for the current branch",
		Description: `Deploys from cdk.out and writes stack outputs to dist/<stage>-outputs.json.

Examples:
  stagectl deploy
  STACK=mvp-foo-stack-dev stagectl deploy --branch develop`,
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
				Msg("Starting deploy")

			return o.Deploy(c.Context, withFlags(c, settings).Stack)
		},
	}
}
