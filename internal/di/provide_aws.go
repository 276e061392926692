package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"
	"github.com/savaki/stagectl/internal/appconfig"
	"github.com/savaki/stagectl/internal/config"
)

const maxRetryAttempts = 10

// LoadAWSConfig builds the SDK configuration for profile and region. CI
// builds use ambient credentials and test mode uses static ones, so neither
// reads the shared profile.
func LoadAWSConfig(ctx context.Context, settings config.Settings, profile, region string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMaxAttempts(maxRetryAttempts),
		awsconfig.WithRetryMode(aws.RetryModeAdaptive),
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	switch {
	case settings.TestMode:
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		))
	case profile != "" && !settings.CI():
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	zerolog.Ctx(ctx).Debug().
		Str("profile", profile).
		Str("region", region).
		Bool("test_mode", settings.TestMode).
		Msg("Loading AWS configuration")

	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// ProvideAWSConfig loads credentials for the resolved stage
func ProvideAWSConfig(ctx context.Context, settings config.Settings, cfg appconfig.ApplicationConfig) (aws.Config, error) {
	return LoadAWSConfig(ctx, settings, cfg.Profile, cfg.Region)
}

func awsConfigProvider(o options) any {
	if o.profile == "" {
		return ProvideAWSConfig
	}
	return func(ctx context.Context, settings config.Settings) (aws.Config, error) {
		return LoadAWSConfig(ctx, settings, o.profile, o.region)
	}
}

func ProvideCloudWatchLogsClient(config aws.Config) *cloudwatchlogs.Client {
	return cloudwatchlogs.NewFromConfig(config)
}

func ProvideSQSClient(config aws.Config) *sqs.Client {
	return sqs.NewFromConfig(config)
}

func ProvideSTSClient(config aws.Config) *sts.Client {
	return sts.NewFromConfig(config)
}

func ProvideIAMClient(config aws.Config) *iam.Client {
	return iam.NewFromConfig(config)
}

func ProvideCloudFormationClient(config aws.Config) *cloudformation.Client {
	return cloudformation.NewFromConfig(config)
}
