package version

// Set at build time with -ldflags "-X github.com/fbz-tec/pgxstream/internal/version.AppVersion=..."
var (
	AppVersion = "dev"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)
