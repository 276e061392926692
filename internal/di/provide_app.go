package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"
	"github.com/savaki/stagectl/internal/appconfig"
	"github.com/savaki/stagectl/internal/config"
	"github.com/savaki/stagectl/internal/orchestrator"
	"github.com/savaki/stagectl/internal/runner"
	"github.com/savaki/stagectl/internal/services"
)

// ProvideExec runs helper commands such as git and the aws cli
func ProvideExec() *runner.Exec {
	return runner.New()
}

func ProvideBranchLookup(exec *runner.Exec) appconfig.GitBranchLookup {
	return appconfig.GitBranchLookup{Runner: exec}
}

func ProvideTable(settings config.Settings) (config.Table, error) {
	table, err := config.LoadTable(settings.StagesFile)
	if err != nil {
		return config.Table{}, fmt.Errorf("failed to load stage table: %w", err)
	}
	return table, nil
}

// ProvideApplicationConfig resolves the stage this invocation targets
func ProvideApplicationConfig(ctx context.Context, settings config.Settings, table config.Table, lookup appconfig.GitBranchLookup) (appconfig.ApplicationConfig, error) {
	logger := zerolog.Ctx(ctx)

	cfg, err := appconfig.Resolve(ctx, appconfig.Input{
		Branch:     settings.Branch,
		FullDeploy: settings.FullDeploy,
		Table:      table,
	}, lookup)
	if err != nil {
		return appconfig.ApplicationConfig{}, err
	}

	logger.Info().
		Str("branch", cfg.Branch).
		Str("stage", cfg.Stage).
		Str("alias", cfg.Alias).
		Str("account", cfg.Account).
		Str("region", cfg.Region).
		Str("profile", cfg.Profile).
		Bool("staging", cfg.IsStagingEnv).
		Bool("full_deploy", cfg.FullDeploy).
		Msg("Resolved deployment target")

	return cfg, nil
}

// ProvideRunner returns the runner for CDK child processes. They inherit the
// stage's region.
func ProvideRunner(cfg appconfig.ApplicationConfig) runner.Runner {
	exec := runner.New()
	if cfg.Region != "" {
		exec.Env = []string{"AWS_REGION=" + cfg.Region}
	}
	return exec
}

func ProvideProfileValidator(client *sts.Client, settings config.Settings) *services.ProfileValidator {
	return services.NewProfileValidator(client, settings.AWSProfile)
}

func ProvideLogGroupCleaner(client *cloudwatchlogs.Client) *services.LogGroupCleaner {
	return services.NewLogGroupCleaner(client)
}

func ProvideCleanupDispatcher(client *sqs.Client) *services.CleanupDispatcher {
	return services.NewCleanupDispatcher(client)
}

func ProvideStackStatusService(client *cloudformation.Client) *services.StackStatusService {
	return services.NewStackStatusService(client)
}

func ProvideSessionTokenService(iamClient *iam.Client, stsClient *sts.Client, exec *runner.Exec) *services.SessionTokenService {
	return services.NewSessionTokenService(iamClient, stsClient, exec)
}

func ProvideOrchestrator(
	cfg appconfig.ApplicationConfig,
	settings config.Settings,
	r runner.Runner,
	profiles *services.ProfileValidator,
	logGroups *services.LogGroupCleaner,
	dispatcher *services.CleanupDispatcher,
	stacks *services.StackStatusService,
	parameters services.ParameterStore,
) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Input{
		Config:     cfg,
		Settings:   settings,
		Runner:     r,
		Profiles:   profiles,
		LogGroups:  logGroups,
		Dispatcher: dispatcher,
		Stacks:     stacks,
		Parameters: parameters,
	})
}
