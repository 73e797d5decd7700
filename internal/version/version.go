// Package version reports build information injected with -ldflags.
package version

import (
	"runtime"
	"time"
)

// Set at build time, e.g.
//
//	go build -ldflags "-X github.com/sean-rowe/weather-resolver/internal/version.Version=1.2.0"
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

// Info contains version and build information.
type Info struct {
	Version   string    `json:"version"`
	BuildTime string    `json:"build_time"`
	GitCommit string    `json:"git_commit"`
	GitBranch string    `json:"git_branch"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	BuildDate time.Time `json:"build_date"`
}

// Get returns version and build information. BuildDate is zero unless
// BuildTime holds an RFC3339 timestamp.
func Get() Info {
	var buildDate time.Time

	if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
		buildDate = t
	}

	return Info{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		BuildDate: buildDate,
	}
}

// UserAgent returns product/version for upstream requests when no User-Agent
// is configured.
func UserAgent(product string) string {
	return product + "/" + Version
}
