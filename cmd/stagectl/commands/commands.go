package commands

import (
	"github.com/rs/zerolog"
	"github.com/savaki/stagectl/internal/config"
	"github.com/savaki/stagectl/internal/di"
	"github.com/urfave/cli/v2"
	"go.uber.org/dig"
)

// All returns every stagectl command. opts are passed to each container,
// which lets tests replace collaborators.
func All(logger *zerolog.Logger, settings config.Settings, opts ...di.Option) []*cli.Command {
	return []*cli.Command{
		SynthCommand(logger, settings, opts...),
		DeployCommand(logger, settings, opts...),
		DestroyCommand(logger, settings, opts...),
		TokenCommand(logger, settings, opts...),
		StatusCommand(logger, settings, opts...),
	}
}

func branchFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "branch",
		Aliases: []string{"b"},
		Usage:   "Branch to resolve the stage from, defaults to the checked out git branch",
		EnvVars: []string{"BRANCH"},
	}
}

func stackFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "stack",
		Aliases: []string{"s"},
		Usage:   "Single stack to synthesize or deploy, defaults to all stacks",
		EnvVars: []string{"STACK"},
	}
}

// withFlags applies command line overrides to settings
func withFlags(c *cli.Context, settings config.Settings) config.Settings {
	if v := c.String("branch"); v != "" {
		settings.Branch = v
	}
	if v := c.String("stack"); v != "" {
		settings.Stack = v
	}
	return settings
}

func newContainer(c *cli.Context, settings config.Settings, opts ...di.Option) (di.Container, error) {
	return di.New(c.Context, withFlags(c, settings), opts...)
}

// resolve returns the constructor's own error rather than dig's wrapped chain
func resolve[T any](container di.Container) (T, error) {
	v, err := di.Get[T](container)
	if err != nil {
		return v, dig.RootCause(err)
	}
	return v, nil
}
