package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/savaki/stagectl/internal/appconfig"
	"github.com/savaki/stagectl/internal/config"
	"github.com/savaki/stagectl/internal/constants"
	apperrors "github.com/savaki/stagectl/internal/errors"
	"github.com/savaki/stagectl/internal/runner"
	"github.com/savaki/stagectl/internal/services"
	"github.com/savaki/stagectl/internal/stacks"
)

// ProfileValidator checks the operator runs under the stage's profile
type ProfileValidator interface {
	Validate(ctx context.Context, requiredProfile, account string) error
}

// LogCleaner removes a stage's log groups
type LogCleaner interface {
	Cleanup(ctx context.Context, stage string) (services.CleanupReport, error)
}

// CleanupDispatcher forwards deferred edge lambda cleanup
type CleanupDispatcher interface {
	Dispatch(ctx context.Context, queueURL string, names []string) (bool, error)
}

// StackDescriber reports deployed stack state
type StackDescriber interface {
	Describe(ctx context.Context, names []string) ([]services.StackStatus, error)
}

// Input holds the Orchestrator's collaborators
type Input struct {
	Config     appconfig.ApplicationConfig
	Settings   config.Settings
	Runner     runner.Runner
	Profiles   ProfileValidator
	LogGroups  LogCleaner
	Dispatcher CleanupDispatcher
	Stacks     StackDescriber
	Parameters services.ParameterStore
}

// Orchestrator runs the synth, deploy and destroy workflows for one
// resolved stage
type Orchestrator struct {
	cfg        appconfig.ApplicationConfig
	settings   config.Settings
	runner     runner.Runner
	profiles   ProfileValidator
	logGroups  LogCleaner
	dispatcher CleanupDispatcher
	stacks     StackDescriber
	parameters services.ParameterStore
}

// New creates a new Orchestrator instance
func New(input Input) *Orchestrator {
	return &Orchestrator{
		cfg:        input.Config,
		settings:   input.Settings,
		runner:     input.Runner,
		profiles:   input.Profiles,
		logGroups:  input.LogGroups,
		dispatcher: input.Dispatcher,
		stacks:     input.Stacks,
		parameters: input.Parameters,
	}
}

// Config returns the resolved stage this Orchestrator targets
func (o *Orchestrator) Config() appconfig.ApplicationConfig {
	return o.cfg
}

// Synth synthesizes the cloud assembly, optionally for a single stack
func (o *Orchestrator) Synth(ctx context.Context, target string) error {
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	if err := o.initCleanupQueue(ctx); err != nil {
		return err
	}
	if err := o.validateProfile(ctx, false); err != nil {
		return err
	}

	logger.Info().
		Str("branch", o.cfg.Branch).
		Str("alias", o.cfg.Alias).
		Str("stage", o.cfg.Stage).
		Msgf(">>> Synthesizing '%s' branch for deployment to %s account", o.cfg.Branch, o.cfg.Alias)

	args := []string{"synth"}
	if target != "" {
		args = append(args, target)
	}
	args = append(args, o.profileArgs(false)...)
	args = append(args, "--quiet")

	if err := o.cdk(ctx, args...); err != nil {
		return err
	}

	logger.Info().Dur("elapsed", time.Since(start)).Msg(">>> Synthesis complete")
	return nil
}

// Deploy deploys target, or every stack when target is empty, from the
// synthesized assembly and records stack outputs for the stage
func (o *Orchestrator) Deploy(ctx context.Context, target string) error {
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	if err := o.initCleanupQueue(ctx); err != nil {
		return err
	}
	if err := o.validateProfile(ctx, false); err != nil {
		return err
	}

	if target == "" {
		target = "--all"
	}

	args := []string{
		"deploy", target,
		"--app", constants.CloudAssemblyDir,
		"--concurrency", strconv.Itoa(constants.DeployConcurrency),
		"--require-approval", "never",
	}
	args = append(args, o.profileArgs(false)...)
	args = append(args, "--outputs-file", o.settings.OutputsPath(o.cfg.Stage))

	logger.Info().Str("stage", o.cfg.Stage).Str("target", target).Msg(">>> Deploying stacks")
	if err := o.cdk(ctx, args...); err != nil {
		return err
	}

	logger.Info().Dur("elapsed", time.Since(start)).Msg("Total deploy time")
	return nil
}

// Destroy tears down every stack of an ephemeral stage. Staging environments
// are refused before any cloud call is made.
func (o *Orchestrator) Destroy(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	if err := CheckDestroyable(o.cfg); err != nil {
		return err
	}

	if err := o.validateProfile(ctx, true); err != nil {
		return err
	}

	logger.Info().Msg(">>> Cleaning up log groups")
	report, err := o.logGroups.Cleanup(ctx, o.cfg.Stage)
	if err != nil {
		return fmt.Errorf("failed to clean up log groups: %w", err)
	}
	logger.Info().
		Int("matched", len(report.Matched)).
		Int("deleted", len(report.Deleted)).
		Int("failed", len(report.Failures)).
		Msg(">>> Log groups cleaned")

	logger.Info().Msg(">>> Destroying stacks")
	args := append([]string{"destroy", "--all", "--force"}, o.profileArgs(true)...)
	if err := o.cdk(ctx, args...); err != nil {
		return err
	}

	names, err := services.CleanupQueueFile{Path: o.settings.EdgeCleanupPath()}.Read()
	if err != nil {
		return err
	}

	queueURL := services.QueueURL(o.cfg.Region, o.cfg.Account, o.cfg.EdgeCleanupQueueName)
	if _, err := o.dispatcher.Dispatch(ctx, queueURL, names); err != nil {
		return err
	}

	logger.Info().Dur("elapsed", time.Since(start)).Msg(">>> Destroy complete.")
	return nil
}

// CheckDestroyable refuses staging environments. It needs only the resolved
// config, so callers can run it before any AWS client exists.
func CheckDestroyable(cfg appconfig.ApplicationConfig) error {
	if cfg.IsStagingEnv {
		return fmt.Errorf("%w: unable to destroy stacks on branch %s for environment %s, please check your git branch", apperrors.ErrSafetyGate, cfg.Branch, cfg.Stage)
	}
	return nil
}

// StatusReport summarizes what is deployed for the stage alongside the
// protection and retention the plan gives each stack
type StatusReport struct {
	Config     appconfig.ApplicationConfig
	Plan       []stacks.Spec
	Stacks     []services.StackStatus
	Parameters map[string]string
	Outputs    map[string]map[string]string
}

// Status reports stack state, published parameters and the last recorded outputs
func (o *Orchestrator) Status(ctx context.Context) (StatusReport, error) {
	specs := stacks.Plan(o.cfg)

	statuses, err := o.stacks.Describe(ctx, stacks.Names(specs))
	if err != nil {
		return StatusReport{}, err
	}

	params, err := o.parameters.GetParameters(ctx, stacks.Parameters(specs))
	if err != nil {
		return StatusReport{}, err
	}

	outputs, err := services.ReadStackOutputs(o.settings.OutputsPath(o.cfg.Stage))
	if err != nil {
		return StatusReport{}, err
	}

	return StatusReport{
		Config:     o.cfg,
		Plan:       specs,
		Stacks:     statuses,
		Parameters: params,
		Outputs:    outputs,
	}, nil
}

func (o *Orchestrator) initCleanupQueue(ctx context.Context) error {
	file := services.CleanupQueueFile{Path: o.settings.EdgeCleanupPath()}
	created, err := file.Init()
	if err != nil {
		return err
	}
	if created {
		zerolog.Ctx(ctx).Debug().Str("path", file.Path).Msg("Initialized edge cleanup queue")
	}
	return nil
}

// CI builds run with ambient credentials; everything else must be on the
// stage's profile. always forces the check for destructive workflows.
func (o *Orchestrator) validateProfile(ctx context.Context, always bool) error {
	if !always && o.settings.CI() {
		return nil
	}
	return o.profiles.Validate(ctx, o.cfg.Profile, o.cfg.Account)
}

func (o *Orchestrator) profileArgs(always bool) []string {
	if !always && o.settings.CI() {
		return nil
	}
	return []string{"--profile", o.cfg.Profile}
}

func (o *Orchestrator) cdk(ctx context.Context, args ...string) error {
	name, prefix := runner.Split(o.settings.CDKCommand)
	if name == "" {
		return fmt.Errorf("%w: CDK_COMMAND is empty", apperrors.ErrConfiguration)
	}

	all := append(append([]string{}, prefix...), args...)
	zerolog.Ctx(ctx).Debug().Str("command", runner.Join(name, all...)).Msg("Running CDK")

	return o.runner.Run(ctx, name, all...)
}
