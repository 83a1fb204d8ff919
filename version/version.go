package version

import "fmt"

// these values are set via ldflags on release builds
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"

	FullVersion = fmt.Sprintf("%s (%s) built %s", Version, GitCommit, BuildDate)
)
