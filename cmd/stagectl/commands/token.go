package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/savaki/stagectl/internal/config"
	"github.com/savaki/stagectl/internal/di"
	apperrors "github.com/savaki/stagectl/internal/errors"
	"github.com/savaki/stagectl/internal/services"
	"github.com/urfave/cli/v2"
)

// TokenCommand returns the token command
func TokenCommand(logger *zerolog.Logger, settings config.Settings, opts ...di.Option) *cli.Command {
	return &cli.Command{
		Name:      "token",
		Usage:     "Refresh the MFA session token profile for an account alias",
		ArgsUsage: "<profile> <token-code>",
		Description: `Calls sts:GetSessionToken with the first MFA device of the profile's user and
stores the temporary credentials in the <profile>-token profile.

Examples:
  stagectl token dev 123456`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "region",
				Aliases: []string{"r"},
				Usage:   "Region for the STS and IAM calls",
				EnvVars: []string{"AWS_REGION"},
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("%w: usage: %s token %s", apperrors.ErrConfiguration, c.App.Name, c.Command.ArgsUsage)
			}
			profile, tokenCode := c.Args().Get(0), c.Args().Get(1)

			options := append([]di.Option{
				di.WithProfile(profile),
				di.WithRegion(c.String("region")),
			}, opts...)
			container, err := newContainer(c, settings, options...)
			if err != nil {
				return err
			}

			tokens, err := resolve[*services.SessionTokenService](container)
			if err != nil {
				return err
			}

			token, err := tokens.Refresh(c.Context, profile, tokenCode)
			if err != nil {
				return err
			}

			logger.Info().
				Str("profile", token.Profile).
				Str("expires_at", token.ExpiresAt()).
				Msgf("Session token saved to profile %s, expires %s", token.Profile, token.ExpiresAt())
			return nil
		},
	}
}
