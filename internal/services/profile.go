package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"
	apperrors "github.com/savaki/stagectl/internal/errors"
)

// STSIdentityAPI resolves the identity behind the loaded credentials
type STSIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// ProfileValidator makes sure a workflow runs under the identity the stage requires
type ProfileValidator struct {
	client        STSIdentityAPI
	activeProfile string // AWS_PROFILE of the operator, may be empty
}

func NewProfileValidator(client STSIdentityAPI, activeProfile string) *ProfileValidator {
	return &ProfileValidator{
		client:        client,
		activeProfile: activeProfile,
	}
}

// Validate fails with ErrProfileMismatch when the operator's profile is not
// requiredProfile or its credentials do not belong to account
func (v *ProfileValidator) Validate(ctx context.Context, requiredProfile, account string) error {
	if v.activeProfile != "" && v.activeProfile != requiredProfile {
		return fmt.Errorf("%w: AWS_PROFILE is %q but this branch deploys with %q", apperrors.ErrProfileMismatch, v.activeProfile, requiredProfile)
	}

	identity, err := v.client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("%w: unable to use profile %q, check that it exists and its session token has not expired: %v", apperrors.ErrProfileMismatch, requiredProfile, err)
	}

	got := aws.ToString(identity.Account)
	if got != account {
		return fmt.Errorf("%w: profile %q resolves to account %s, expected %s", apperrors.ErrProfileMismatch, requiredProfile, got, account)
	}

	zerolog.Ctx(ctx).Debug().
		Str("profile", requiredProfile).
		Str("arn", aws.ToString(identity.Arn)).
		Msg("Validated AWS profile")

	return nil
}
