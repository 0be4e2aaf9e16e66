// Package buildinfo holds release metadata stamped at link time, e.g.
//
//	go build -ldflags "-X github.com/fintrack-dev/fintrack/internal/buildinfo.Version=v0.3.0" ./cmd/fintrack
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the version line shown by the CLI.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
