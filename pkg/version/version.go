package version

// Set with -ldflags "-X github.com/llguy/voxsync/pkg/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
