// Package version holds build-time identifying information for devbridged
// and the devbridge CLI client.
package version

import "fmt"

// Version, GitCommit and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/aurora-devkit/devbridged/pkg/version.Version=v1.0.0 \
//	  -X github.com/aurora-devkit/devbridged/pkg/version.GitCommit=abc1234 \
//	  -X github.com/aurora-devkit/devbridged/pkg/version.BuildDate=2026-01-01"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a single-line human-readable build identifier.
func Info() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
