package services

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/savaki/stagectl/internal/constants"
	apperrors "github.com/savaki/stagectl/internal/errors"
	"github.com/savaki/stagectl/internal/runner"
	"golang.org/x/sync/errgroup"
)

// MFADeviceAPI lists the caller's MFA devices
type MFADeviceAPI interface {
	ListMFADevices(ctx context.Context, params *iam.ListMFADevicesInput, optFns ...func(*iam.Options)) (*iam.ListMFADevicesOutput, error)
}

// SessionTokenAPI issues MFA backed session credentials
type SessionTokenAPI interface {
	GetSessionToken(ctx context.Context, params *sts.GetSessionTokenInput, optFns ...func(*sts.Options)) (*sts.GetSessionTokenOutput, error)
}

// SessionToken describes the profile written by Refresh
type SessionToken struct {
	Profile    string
	Expiration time.Time
}

// ExpiresAt formats the expiration the way operators read it
func (s SessionToken) ExpiresAt() string {
	loc, err := time.LoadLocation(constants.ExpirationTimeZone)
	if err != nil {
		loc = time.UTC
	}
	return s.Expiration.In(loc).Format("01/02/2006 03:04 MST")
}

// SessionTokenService exchanges an MFA code for session credentials and
// stores them in the <profile>-token profile through the aws cli
type SessionTokenService struct {
	iamClient MFADeviceAPI
	stsClient SessionTokenAPI
	runner    runner.Runner
}

func NewSessionTokenService(iamClient MFADeviceAPI, stsClient SessionTokenAPI, r runner.Runner) *SessionTokenService {
	return &SessionTokenService{
		iamClient: iamClient,
		stsClient: stsClient,
		runner:    r,
	}
}

func (s *SessionTokenService) Refresh(ctx context.Context, profile, tokenCode string) (SessionToken, error) {
	if profile == "" {
		return SessionToken{}, fmt.Errorf("profile is required")
	}
	if tokenCode == "" {
		return SessionToken{}, fmt.Errorf("MFA token code is required")
	}

	devices, err := s.iamClient.ListMFADevices(ctx, &iam.ListMFADevicesInput{})
	if err != nil {
		return SessionToken{}, fmt.Errorf("failed to list MFA devices: %w", err)
	}
	if len(devices.MFADevices) == 0 {
		return SessionToken{}, apperrors.ErrNoMFADevice
	}

	output, err := s.stsClient.GetSessionToken(ctx, &sts.GetSessionTokenInput{
		DurationSeconds: aws.Int32(constants.SessionTokenDuration),
		SerialNumber:    devices.MFADevices[0].SerialNumber,
		TokenCode:       aws.String(tokenCode),
	})
	if err != nil {
		return SessionToken{}, fmt.Errorf("failed to get session token: %w", err)
	}
	if output.Credentials == nil {
		return SessionToken{}, fmt.Errorf("session token response has no credentials")
	}

	target := profile + constants.TokenProfileSuffix
	creds := output.Credentials
	fields := [][2]string{
		{"aws_access_key_id", aws.ToString(creds.AccessKeyId)},
		{"aws_secret_access_key", aws.ToString(creds.SecretAccessKey)},
		{"aws_session_token", aws.ToString(creds.SessionToken)},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, field := range fields {
		g.Go(func() error {
			return s.runner.Run(gctx, "aws", "configure", "set", field[0], field[1], "--profile", target)
		})
	}
	if err := g.Wait(); err != nil {
		return SessionToken{}, fmt.Errorf("failed to write profile %s: %w", target, err)
	}

	return SessionToken{
		Profile:    target,
		Expiration: aws.ToTime(creds.Expiration),
	}, nil
}
