// Package appconfig resolves which stage, account and credential profile a
// run targets. Every workflow starts from the ApplicationConfig built here.
package appconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/savaki/stagectl/internal/config"
	"github.com/savaki/stagectl/internal/constants"
	apperrors "github.com/savaki/stagectl/internal/errors"
)

// ApplicationConfig is the resolved deployment target for one invocation
type ApplicationConfig struct {
	Project              string
	Branch               string
	Stage                string
	Alias                string
	Account              string
	Region               string
	Profile              string
	IsStagingEnv         bool
	FullDeploy           bool
	DeployMFA            bool
	EdgeCleanupQueueName string
}

// BranchLookup reports the current source control branch
type BranchLookup interface {
	CurrentBranch(ctx context.Context) (string, error)
}

// Input holds what Resolve needs besides the branch lookup
type Input struct {
	Branch     string // explicit override, wins over the lookup
	FullDeploy bool
	Table      config.Table
}

// Resolve builds the ApplicationConfig for the requested or current branch.
// Branches without a stage definition fall back to the first definition.
func Resolve(ctx context.Context, input Input, lookup BranchLookup) (ApplicationConfig, error) {
	if len(input.Table.Stages) == 0 {
		return ApplicationConfig{}, fmt.Errorf("%w: stage table is empty", apperrors.ErrConfiguration)
	}

	branch := input.Branch
	if branch == "" && lookup != nil {
		current, err := lookup.CurrentBranch(ctx)
		if err != nil {
			return ApplicationConfig{}, fmt.Errorf("%w: unable to determine git branch: %v", apperrors.ErrConfiguration, err)
		}
		branch = current
	}
	if branch == "" {
		return ApplicationConfig{}, fmt.Errorf("%w: could not determine what environment to deploy, neither BRANCH nor a git branch is available", apperrors.ErrConfiguration)
	}

	definition, _ := input.Table.Find(branch)
	if definition.Account == "" {
		return ApplicationConfig{}, fmt.Errorf("%w: no account found in stage definition for branch %q", apperrors.ErrConfiguration, definition.Branch)
	}

	stage := DeriveStage(branch)

	return ApplicationConfig{
		Project:              input.Table.Project,
		Branch:               branch,
		Stage:                stage,
		Alias:                definition.Alias,
		Account:              definition.Account,
		Region:               definition.Region,
		Profile:              DeriveProfile(definition.Alias, definition.DeployMFA),
		IsStagingEnv:         IsStagingStage(stage),
		FullDeploy:           input.FullDeploy,
		DeployMFA:            definition.DeployMFA,
		EdgeCleanupQueueName: input.Table.QueueName(),
	}, nil
}

// DeriveStage maps a branch to its stage name. Unknown branches keep their
// own name so every developer branch gets an ephemeral environment.
func DeriveStage(branch string) string {
	switch branch {
	case "master":
		return "prod"
	case "qa":
		return "qa"
	case "develop":
		return "dev"
	}

	if i := strings.LastIndex(branch, "/"); i >= 0 {
		return branch[i+1:]
	}
	return branch
}

// DeriveProfile returns the credential profile for alias
func DeriveProfile(alias string, deployMFA bool) string {
	if deployMFA {
		return alias + constants.TokenProfileSuffix
	}
	return alias
}

// IsStagingStage reports whether stage is one of the shared, long lived stages
func IsStagingStage(stage string) bool {
	switch stage {
	case "prod", "qa", "dev":
		return true
	default:
		return false
	}
}
