package commands

import (
	"github.com/rs/zerolog"
	"github.com/savaki/stagectl/internal/appconfig"
	"github.com/savaki/stagectl/internal/config"
	"github.com/savaki/stagectl/internal/di"
	"github.com/savaki/stagectl/internal/orchestrator"
	"github.com/urfave/cli/v2"
)

// DestroyCommand returns the destroy command
func DestroyCommand(logger *zerolog.Logger, settings config.Settings, opts ...di.Option) *cli.Command {
	return &cli.Command{
		Name:  "destroy",
		Usage: "Tear down every stack of an ephemeral stage",
		Description: `Deletes the stage's log groups, destroys all stacks and queues deferred
edge lambda cleanup. prod, qa and dev are never destroyed.`,
		Flags: []cli.Flag{
			branchFlag(),
		},
		Action: func(c *cli.Context) error {
			container, err := newContainer(c, settings, opts...)
			if err != nil {
				return err
			}

			cfg, err := resolve[appconfig.ApplicationConfig](container)
			if err != nil {
				return err
			}

			logger.Info().
				Str("branch", cfg.Branch).
				Str("stage", cfg.Stage).
				Msg("Starting destroy")

			// gate before the orchestrator pulls in credentials
			if err := orchestrator.CheckDestroyable(cfg); err != nil {
				return err
			}

			o, err := resolve[*orchestrator.Orchestrator](container)
			if err != nil {
				return err
			}

			return o.Destroy(c.Context)
		},
	}
}
