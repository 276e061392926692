package constants

// CDK toolkit invocation defaults
const (
	// DefaultCDKCommand is the command used to reach the CDK toolkit when
	// CDK_COMMAND is not set
	DefaultCDKCommand = "npx cdk"

	// DeployConcurrency bounds how many stacks the toolkit deploys in parallel
	DeployConcurrency = 10

	// CloudAssemblyDir is the synthesized cloud assembly deploy reads from
	CloudAssemblyDir = "cdk.out"

	// DefaultDistDir holds the cleanup queue file and stack outputs
	DefaultDistDir = "dist"

	// EdgeCleanupFile is the name of the deferred cleanup queue file in DistDir
	EdgeCleanupFile = "edgeCleanupQueue.json"
)

// Session token bootstrap
const (
	// SessionTokenDuration is 36 hours, the maximum STS allows for IAM users
	SessionTokenDuration int32 = 129600

	// TokenProfileSuffix is appended to an alias to name its MFA session profile
	TokenProfileSuffix = "-token"

	// ExpirationTimeZone is used when printing session expiration
	ExpirationTimeZone = "America/New_York"
)
