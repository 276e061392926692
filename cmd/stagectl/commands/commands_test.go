package commands

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/savaki/stagectl/internal/appconfig"
	"github.com/savaki/stagectl/internal/config"
	"github.com/savaki/stagectl/internal/di"
	apperrors "github.com/savaki/stagectl/internal/errors"
	"github.com/savaki/stagectl/internal/orchestrator"
	"github.com/savaki/stagectl/internal/runner"
	"github.com/savaki/stagectl/internal/services"
	"github.com/savaki/stagectl/internal/stacks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const stagesYAML = `
project: mvp
stages:
  - branch: individual
    alias: individual
    account: "111111111111"
    region: us-west-2
  - branch: develop
    alias: dev
    account: "222222222222"
    region: us-east-1
`

type recordingRunner struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, runner.Join(name, args...))
	return nil
}

func (r *recordingRunner) Output(_ context.Context, name string, args ...string) (string, error) {
	return "", nil
}

type harness struct {
	settings config.Settings
	runner   *recordingRunner
	out      *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	dir := t.TempDir()
	path := filepath.Join(dir, "stages.yaml")
	require.NoError(t, os.WriteFile(path, []byte(stagesYAML), 0o644))

	return &harness{
		settings: config.Settings{
			IsCodeBuild: true,
			TestMode:    true,
			StagesFile:  path,
			CDKCommand:  "npx cdk",
			DistDir:     filepath.Join(dir, "dist"),
		},
		runner: &recordingRunner{},
		out:    &bytes.Buffer{},
	}
}

func (h *harness) run(args ...string) error {
	logger := zerolog.New(io.Discard)
	ctx := logger.WithContext(context.Background())

	app := &cli.App{
		Name:   "stagectl",
		Writer: h.out,
		Commands: All(&logger, h.settings,
			di.WithDecorators(func(runner.Runner) runner.Runner { return h.runner }),
		),
	}
	return app.RunContext(ctx, append([]string{"stagectl"}, args...))
}

func TestSynthCommand(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("synth", "--branch", "feature/alpha"))

	assert.Equal(t, []string{"npx cdk synth --quiet"}, h.runner.calls)
	_, err := os.Stat(h.settings.EdgeCleanupPath())
	assert.NoError(t, err)
}

func TestDeployCommand(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("deploy", "--branch", "develop", "--stack", "mvp-foo-stack-dev"))

	require.Len(t, h.runner.calls, 1)
	call := h.runner.calls[0]
	assert.True(t, strings.HasPrefix(call, "npx cdk deploy mvp-foo-stack-dev --app cdk.out --concurrency 10 --require-approval never --outputs-file "))
	assert.True(t, strings.HasSuffix(call, "dev-outputs.json"))
}

func TestDestroyCommand_RefusesStaging(t *testing.T) {
	h := newHarness(t)

	err := h.run("destroy", "--branch", "develop")
	assert.ErrorIs(t, err, apperrors.ErrSafetyGate)
	assert.Empty(t, h.runner.calls)
}

func TestDestroyCommand_RefusesStagingWithoutCredentials(t *testing.T) {
	// no shared config or credentials for the stage's profile
	empty := t.TempDir()
	t.Setenv("HOME", empty)
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(empty, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(empty, "credentials"))
	t.Setenv("AWS_PROFILE", "")

	h := newHarness(t)
	h.settings.TestMode = false
	h.settings.IsCodeBuild = false

	err := h.run("destroy", "--branch", "develop")
	assert.ErrorIs(t, err, apperrors.ErrSafetyGate)
	assert.Empty(t, h.runner.calls)
}

func TestCommand_UnresolvableBranch(t *testing.T) {
	h := newHarness(t)
	h.settings.StagesFile = filepath.Join(t.TempDir(), "missing.yaml")

	err := h.run("synth", "--branch", "develop")
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	assert.Empty(t, h.runner.calls)
}

func TestTokenCommand_RequiresArguments(t *testing.T) {
	h := newHarness(t)

	err := h.run("token", "dev")
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	report := orchestrator.StatusReport{
		Config: appconfig.ApplicationConfig{
			Branch:  "feature/alpha",
			Stage:   "alpha",
			Alias:   "individual",
			Account: "111111111111",
			Region:  "us-west-2",
			Profile: "individual",
		},
		Plan: []stacks.Spec{
			{
				Name:          "mvp-stateful-stack-alpha",
				RemovalPolicy: stacks.RemovalPolicyDestroy,
				LogGroups:     []string{"mvp-stateful-ApiLogGroup-alpha"},
			},
			{Name: "mvp-foo-stack-alpha", RemovalPolicy: stacks.RemovalPolicyDestroy},
		},
		Stacks: []services.StackStatus{
			{Name: "mvp-stateful-stack-alpha", Status: "UPDATE_COMPLETE", LastUpdated: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
			{Name: "mvp-foo-stack-alpha", Status: services.StackStatusNotFound},
		},
		Parameters: map[string]string{"/mvp/stateful/id/alpha": "abc123"},
		Outputs: map[string]map[string]string{
			"mvp-stateful-stack-alpha": {"ApiUrl": "https://example.com"},
		},
	}

	require.NoError(t, printStatus(&buf, report))

	out := buf.String()
	assert.Contains(t, out, "Stage:   alpha (branch feature/alpha)")
	assert.Contains(t, out, "2024-03-01 12:00:00")
	assert.Contains(t, out, "NOT_FOUND")
	assert.Contains(t, out, "PROTECTED")
	assert.Regexp(t, `mvp-foo-stack-alpha\s+NOT_FOUND\s+-\s+false\s+destroy`, out)
	assert.Contains(t, out, "Log groups:\n  mvp-stateful-ApiLogGroup-alpha")
	assert.Contains(t, out, "/mvp/stateful/id/alpha = abc123")
	assert.Contains(t, out, "mvp-stateful-stack-alpha.ApiUrl = https://example.com")
}
