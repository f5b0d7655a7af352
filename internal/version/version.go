// Package version provides build-time version information.
package version

import "fmt"

// AppName is the user-visible application name.
const AppName = "Textractor"

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version
	Version = "1.0.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// String describes the build for logs and the About dialog.
func String() string {
	return fmt.Sprintf("%s v%s (commit %s, built %s)", AppName, Version, GitCommit, BuildTime)
}
