package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/savaki/stagectl/internal/constants"
)

// Settings is everything the workflows read from the process environment.
// It is assembled once in main and passed by value.
type Settings struct {
	Branch      string // BRANCH
	Stack       string // STACK
	IsCodeBuild bool   // IS_CODEBUILD
	IsGitHub    bool   // IS_GITHUB
	FullDeploy  bool   // FULL_DEPLOY
	TestMode    bool   // IS_JEST
	AWSProfile  string // AWS_PROFILE
	StagesFile  string // STAGES_FILE
	CDKCommand  string // CDK_COMMAND
	DistDir     string // DIST_DIR
}

// LoadSettings reads Settings using getenv, typically os.Getenv
func LoadSettings(getenv func(string) string) Settings {
	s := Settings{
		Branch:      strings.TrimSpace(getenv("BRANCH")),
		Stack:       strings.TrimSpace(getenv("STACK")),
		IsCodeBuild: isSet(getenv("IS_CODEBUILD")),
		IsGitHub:    isTrue(getenv("IS_GITHUB")),
		FullDeploy:  getenv("FULL_DEPLOY") == "true",
		TestMode:    isTrue(getenv("IS_JEST")),
		AWSProfile:  getenv("AWS_PROFILE"),
		StagesFile:  getenv("STAGES_FILE"),
		CDKCommand:  getenv("CDK_COMMAND"),
		DistDir:     getenv("DIST_DIR"),
	}

	if s.StagesFile == "" {
		s.StagesFile = "stages.yaml"
	}
	if s.CDKCommand == "" {
		s.CDKCommand = constants.DefaultCDKCommand
	}
	if s.DistDir == "" {
		s.DistDir = constants.DefaultDistDir
	}

	return s
}

// FromEnvironment is LoadSettings(os.Getenv)
func FromEnvironment() Settings {
	return LoadSettings(os.Getenv)
}

// CI reports whether credentials come from the build environment rather
// than a named local profile
func (s Settings) CI() bool {
	return s.IsCodeBuild || s.IsGitHub
}

// EdgeCleanupPath is the location of the deferred cleanup queue file
func (s Settings) EdgeCleanupPath() string {
	return filepath.Join(s.DistDir, constants.EdgeCleanupFile)
}

// OutputsPath is where deploy writes stack outputs for stage
func (s Settings) OutputsPath(stage string) string {
	return filepath.Join(s.DistDir, stage+"-outputs.json")
}

// isSet treats any non-empty value other than false/0 as set. CodeBuild
// exports IS_CODEBUILD with arbitrary values.
func isSet(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v != "" && v != "false" && v != "0"
}

func isTrue(v string) bool {
	return strings.ToLower(strings.TrimSpace(v)) == "true"
}
