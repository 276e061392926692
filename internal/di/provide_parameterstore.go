package di

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog"
	"github.com/savaki/stagectl/internal/services"
)

// ProvideSSMClient provides an SSM client for Parameter Store access
// Returns nil if SSM is disabled (for local development)
func ProvideSSMClient(awsConfig aws.Config) *ssm.Client {
	if os.Getenv("DISABLE_SSM") == "true" {
		return nil
	}

	return ssm.NewFromConfig(awsConfig)
}

// ProvideParameterStore provides a ParameterStore implementation.
// With SSM disabled every parameter reads as missing.
func ProvideParameterStore(ctx context.Context, ssmClient *ssm.Client) services.ParameterStore {
	logger := zerolog.Ctx(ctx)

	if ssmClient == nil {
		logger.Debug().Msg("SSM disabled, stack parameters will be reported as missing")
		return services.EmptyParameterStore{}
	}

	return services.NewSSMParameterStore(ssmClient)
}
