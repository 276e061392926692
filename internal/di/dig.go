// Package di provides a lightweight wrapper around uber's dig dependency injection framework.
// It simplifies container setup and provides type-safe dependency retrieval with generics.
package di

import (
	"context"

	"github.com/savaki/stagectl/internal/config"
	"go.uber.org/dig"
)

// Container defines a dependency injection container based on uber's dig.
// This interface allows for easy testing and mocking of the DI container.
type Container interface {
	// Invoke executes a function, injecting its dependencies from the container.
	Invoke(function any, opts ...dig.InvokeOption) error

	// Provide registers a constructor function in the container.
	Provide(constructor any, opts ...dig.ProvideOption) error

	// Decorate replaces a provided value with the decorator's result.
	Decorate(decorator any, opts ...dig.DecorateOption) error

	// Scope creates a scoped sub-container with its own set of values.
	Scope(name string, opts ...dig.ScopeOption) *dig.Scope
}

// MustGet returns an instance constructed via dependency injection or panics.
// If the dependency cannot be resolved, it will panic.
//
// Example:
//
//	o := MustGet[*orchestrator.Orchestrator](container)
func MustGet[T any](container Container) (want T) {
	callback := func(got T) {
		want = got
	}
	if err := container.Invoke(callback); err != nil {
		panic(err)
	}
	return want
}

// Get is MustGet without the panic, for callers that report resolution
// failures such as a missing stage definition to the operator.
func Get[T any](container Container) (want T, err error) {
	err = container.Invoke(func(got T) {
		want = got
	})
	return want, err
}

// New creates a new dependency injection container for one invocation. ctx
// and settings are registered as-is; everything else is constructed lazily on
// first use, so a command only pays for the clients it asks for.
//
// Example:
//
//	container, err := New(ctx, settings,
//	    WithProviders(
//	        func() orchestrator.LogCleaner { return fake },
//	    ),
//	)
func New(ctx context.Context, settings config.Settings, opts ...Option) (Container, error) {
	// Build options
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	container := dig.New()
	if err := container.Provide(func() context.Context { return ctx }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() config.Settings { return settings }); err != nil {
		return nil, err
	}
	if err := container.Provide(awsConfigProvider(o)); err != nil {
		return nil, err
	}

	for _, provider := range core {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	for _, provider := range o.providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	for _, decorator := range o.decorators {
		if err := container.Decorate(decorator); err != nil {
			return nil, err
		}
	}

	return container, nil
}

var core = []any{
	ProvideExec,
	ProvideBranchLookup,
	ProvideTable,
	ProvideApplicationConfig,
	ProvideRunner,
	ProvideCloudWatchLogsClient,
	ProvideSQSClient,
	ProvideSTSClient,
	ProvideIAMClient,
	ProvideCloudFormationClient,
	ProvideSSMClient,
	ProvideParameterStore,
	ProvideProfileValidator,
	ProvideLogGroupCleaner,
	ProvideCleanupDispatcher,
	ProvideStackStatusService,
	ProvideSessionTokenService,
	ProvideOrchestrator,
}
