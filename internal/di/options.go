package di

// Option is a function that configures the dependency injection container.
type Option func(*options)

// WithProfile loads AWS credentials from profile instead of the profile the
// resolved stage deploys with. The token command uses it to call STS with
// long-lived credentials before any stage is resolved.
func WithProfile(profile string) Option {
	return func(opts *options) {
		opts.profile = profile
	}
}

// WithRegion pins the region used alongside WithProfile
func WithRegion(region string) Option {
	return func(opts *options) {
		opts.region = region
	}
}

// WithProviders adds constructor functions to the dependency injection container.
// Each provider should be a constructor function that returns one or more values.
// Providers can declare dependencies as function parameters, which will be
// automatically resolved by the container.
//
// Example:
//
//	WithProviders(
//	    func() *Database { return &Database{} },
//	    func(db *Database) *Service { return &Service{DB: db} },
//	)
func WithProviders(providers ...any) Option {
	return func(opts *options) {
		opts.providers = append(opts.providers, providers...)
	}
}

// WithDecorators replaces values the container already provides. Each
// decorator takes the original value and returns its replacement.
//
// Example:
//
//	WithDecorators(
//	    func(runner.Runner) runner.Runner { return fake },
//	)
func WithDecorators(decorators ...any) Option {
	return func(opts *options) {
		opts.decorators = append(opts.decorators, decorators...)
	}
}

type options struct {
	profile    string
	region     string
	providers  []any
	decorators []any
}
