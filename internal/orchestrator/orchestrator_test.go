package orchestrator

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/savaki/stagectl/internal/appconfig"
	"github.com/savaki/stagectl/internal/config"
	apperrors "github.com/savaki/stagectl/internal/errors"
	"github.com/savaki/stagectl/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	logger := zerolog.New(io.Discard)
	return logger.WithContext(context.Background())
}

// recorder collects the order in which collaborators are invoked
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.events...)
}

type mockRunner struct {
	rec     *recorder
	runFunc func(name string, args ...string) error
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) error {
	m.rec.add("run " + strings.Join(append([]string{name}, args...), " "))
	if m.runFunc != nil {
		return m.runFunc(name, args...)
	}
	return nil
}

func (m *mockRunner) Output(_ context.Context, name string, args ...string) (string, error) {
	return "", nil
}

type mockProfiles struct {
	rec *recorder
	err error
}

func (m *mockProfiles) Validate(_ context.Context, requiredProfile, account string) error {
	m.rec.add("validate " + requiredProfile + " " + account)
	return m.err
}

type mockLogCleaner struct {
	rec *recorder
	err error
}

func (m *mockLogCleaner) Cleanup(_ context.Context, stage string) (services.CleanupReport, error) {
	m.rec.add("cleanup " + stage)
	return services.CleanupReport{}, m.err
}

type mockDispatcher struct {
	rec   *recorder
	url   string
	names []string
}

func (m *mockDispatcher) Dispatch(_ context.Context, queueURL string, names []string) (bool, error) {
	m.rec.add("dispatch")
	m.url = queueURL
	m.names = names
	return len(names) > 0, nil
}

type mockStacks struct {
	names []string
}

func (m *mockStacks) Describe(_ context.Context, names []string) ([]services.StackStatus, error) {
	m.names = names
	statuses := make([]services.StackStatus, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, services.StackStatus{Name: name, Status: "CREATE_COMPLETE"})
	}
	return statuses, nil
}

type mockParameters struct {
	values map[string]string
}

func (m *mockParameters) GetParameters(_ context.Context, names []string) (map[string]string, error) {
	found := map[string]string{}
	for _, name := range names {
		if v, ok := m.values[name]; ok {
			found[name] = v
		}
	}
	return found, nil
}

type fixture struct {
	rec        *recorder
	runner     *mockRunner
	profiles   *mockProfiles
	logs       *mockLogCleaner
	dispatcher *mockDispatcher
	stacks     *mockStacks
	parameters *mockParameters
	settings   config.Settings
	cfg        appconfig.ApplicationConfig
}

func newFixture(t *testing.T) *fixture {
	rec := &recorder{}
	return &fixture{
		rec:        rec,
		runner:     &mockRunner{rec: rec},
		profiles:   &mockProfiles{rec: rec},
		logs:       &mockLogCleaner{rec: rec},
		dispatcher: &mockDispatcher{rec: rec},
		stacks:     &mockStacks{},
		parameters: &mockParameters{values: map[string]string{}},
		settings: config.Settings{
			CDKCommand: "npx cdk",
			DistDir:    t.TempDir(),
		},
		cfg: appconfig.ApplicationConfig{
			Project:              "mvp",
			Branch:               "feature/alpha",
			Stage:                "alpha",
			Alias:                "individual",
			Account:              "123456789012",
			Region:               "us-east-1",
			Profile:              "individual",
			EdgeCleanupQueueName: "mvp-edge-cleanup-queue",
		},
	}
}

func (f *fixture) orchestrator() *Orchestrator {
	return New(Input{
		Config:     f.cfg,
		Settings:   f.settings,
		Runner:     f.runner,
		Profiles:   f.profiles,
		LogGroups:  f.logs,
		Dispatcher: f.dispatcher,
		Stacks:     f.stacks,
		Parameters: f.parameters,
	})
}

func TestSynth(t *testing.T) {
	t.Run("validates profile and passes it locally", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.orchestrator().Synth(testContext(), ""))

		assert.Equal(t, []string{
			"validate individual 123456789012",
			"run npx cdk synth --profile individual --quiet",
		}, f.rec.list())

		_, err := os.Stat(f.settings.EdgeCleanupPath())
		assert.NoError(t, err, "queue file should be initialized")
	})

	t.Run("targets a single stack", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.orchestrator().Synth(testContext(), "mvp-foo-stack-alpha"))

		assert.Contains(t, f.rec.list(), "run npx cdk synth mvp-foo-stack-alpha --profile individual --quiet")
	})

	t.Run("CI skips validation and profile flag", func(t *testing.T) {
		f := newFixture(t)
		f.settings.IsCodeBuild = true

		require.NoError(t, f.orchestrator().Synth(testContext(), ""))

		assert.Equal(t, []string{"run npx cdk synth --quiet"}, f.rec.list())
	})

	t.Run("profile mismatch stops before cdk", func(t *testing.T) {
		f := newFixture(t)
		f.profiles.err = apperrors.ErrProfileMismatch

		err := f.orchestrator().Synth(testContext(), "")
		assert.ErrorIs(t, err, apperrors.ErrProfileMismatch)
		assert.Len(t, f.rec.list(), 1)
	})

	t.Run("child failure propagates", func(t *testing.T) {
		f := newFixture(t)
		f.runner.runFunc = func(string, ...string) error {
			return apperrors.ErrChildProcess
		}

		err := f.orchestrator().Synth(testContext(), "")
		assert.ErrorIs(t, err, apperrors.ErrChildProcess)
	})

	t.Run("does not overwrite existing queue file", func(t *testing.T) {
		f := newFixture(t)
		path := f.settings.EdgeCleanupPath()
		require.NoError(t, os.WriteFile(path, []byte(`{"edgeLambdaNames":["fn-1"]}`), 0o644))

		require.NoError(t, f.orchestrator().Synth(testContext(), ""))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "fn-1")
	})
}

func TestDeploy(t *testing.T) {
	t.Run("deploys all stacks", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.orchestrator().Deploy(testContext(), ""))

		outputs := filepath.Join(f.settings.DistDir, "alpha-outputs.json")
		assert.Equal(t, []string{
			"validate individual 123456789012",
			"run npx cdk deploy --all --app cdk.out --concurrency 10 --require-approval never --profile individual --outputs-file " + outputs,
		}, f.rec.list())
	})

	t.Run("GitHub deploys single stack without profile", func(t *testing.T) {
		f := newFixture(t)
		f.settings.IsGitHub = true

		require.NoError(t, f.orchestrator().Deploy(testContext(), "mvp-foo-stack-alpha"))

		events := f.rec.list()
		require.Len(t, events, 1)
		assert.Contains(t, events[0], "deploy mvp-foo-stack-alpha --app cdk.out")
		assert.NotContains(t, events[0], "--profile")
	})

	t.Run("custom cdk command", func(t *testing.T) {
		f := newFixture(t)
		f.settings.IsCodeBuild = true
		f.settings.CDKCommand = "cdk"

		require.NoError(t, f.orchestrator().Deploy(testContext(), ""))

		assert.True(t, strings.HasPrefix(f.rec.list()[0], "run cdk deploy --all"))
	})

	t.Run("empty cdk command", func(t *testing.T) {
		f := newFixture(t)
		f.settings.IsCodeBuild = true
		f.settings.CDKCommand = "  "

		err := f.orchestrator().Deploy(testContext(), "")
		assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	})
}

func TestDestroy(t *testing.T) {
	t.Run("refuses staging environments", func(t *testing.T) {
		for _, stage := range []string{"prod", "qa", "dev"} {
			t.Run(stage, func(t *testing.T) {
				f := newFixture(t)
				f.cfg.Stage = stage
				f.cfg.IsStagingEnv = true

				err := f.orchestrator().Destroy(testContext())
				assert.ErrorIs(t, err, apperrors.ErrSafetyGate)
				assert.Empty(t, f.rec.list(), "no collaborator may be called")
			})
		}
	})

	t.Run("runs steps in order and dispatches queue", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, os.WriteFile(f.settings.EdgeCleanupPath(), []byte(`{"edgeLambdaNames":["edge-a","edge-b"]}`), 0o644))

		require.NoError(t, f.orchestrator().Destroy(testContext()))

		assert.Equal(t, []string{
			"validate individual 123456789012",
			"cleanup alpha",
			"run npx cdk destroy --all --force --profile individual",
			"dispatch",
		}, f.rec.list())
		assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123456789012/mvp-edge-cleanup-queue", f.dispatcher.url)
		assert.Equal(t, []string{"edge-a", "edge-b"}, f.dispatcher.names)
	})

	t.Run("CI still validates and passes profile", func(t *testing.T) {
		f := newFixture(t)
		f.settings.IsCodeBuild = true

		require.NoError(t, f.orchestrator().Destroy(testContext()))

		events := f.rec.list()
		assert.Equal(t, "validate individual 123456789012", events[0])
		assert.Contains(t, events, "run npx cdk destroy --all --force --profile individual")
	})

	t.Run("missing queue file dispatches empty list", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.orchestrator().Destroy(testContext()))

		assert.Empty(t, f.dispatcher.names)
	})

	t.Run("profile mismatch stops before cleanup", func(t *testing.T) {
		f := newFixture(t)
		f.profiles.err = apperrors.ErrProfileMismatch

		err := f.orchestrator().Destroy(testContext())
		assert.ErrorIs(t, err, apperrors.ErrProfileMismatch)
		assert.Equal(t, []string{"validate individual 123456789012"}, f.rec.list())
	})

	t.Run("destroy failure skips dispatch", func(t *testing.T) {
		f := newFixture(t)
		f.runner.runFunc = func(string, ...string) error {
			return apperrors.ErrChildProcess
		}

		err := f.orchestrator().Destroy(testContext())
		assert.ErrorIs(t, err, apperrors.ErrChildProcess)
		assert.NotContains(t, f.rec.list(), "dispatch")
	})

	t.Run("listing failure aborts", func(t *testing.T) {
		f := newFixture(t)
		f.logs.err = errors.New("throttled")

		err := f.orchestrator().Destroy(testContext())
		assert.Error(t, err)
		assert.Len(t, f.rec.list(), 2)
	})
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	f.parameters.values["/mvp/stateful/id/alpha"] = "abc123"
	require.NoError(t, os.WriteFile(f.settings.OutputsPath("alpha"), []byte(`{"mvp-foo-stack-alpha":{"Url":"https://example.com"}}`), 0o644))

	report, err := f.orchestrator().Status(testContext())
	require.NoError(t, err)

	assert.Equal(t, "alpha", report.Config.Stage)
	assert.Equal(t, f.stacks.names, stackNames(report.Stacks))
	assert.Equal(t, []string{"mvp-stateful-stack-alpha", "mvp-foo-stack-alpha"}, f.stacks.names)
	assert.Equal(t, map[string]string{"/mvp/stateful/id/alpha": "abc123"}, report.Parameters)
	assert.Equal(t, "https://example.com", report.Outputs["mvp-foo-stack-alpha"]["Url"])

	require.Len(t, report.Plan, 2)
	assert.Equal(t, []string{"mvp-stateful-ApiLogGroup-alpha"}, report.Plan[0].LogGroups)
	assert.False(t, report.Plan[0].TerminationProtection)
}

func TestCheckDestroyable(t *testing.T) {
	tests := []struct {
		name    string
		stage   string
		staging bool
		wantErr error
	}{
		{name: "ephemeral", stage: "alpha"},
		{name: "dev", stage: "dev", staging: true, wantErr: apperrors.ErrSafetyGate},
		{name: "prod", stage: "prod", staging: true, wantErr: apperrors.ErrSafetyGate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckDestroyable(appconfig.ApplicationConfig{Stage: tt.stage, IsStagingEnv: tt.staging})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func stackNames(statuses []services.StackStatus) []string {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, s.Name)
	}
	return names
}
