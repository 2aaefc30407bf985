// Package version holds build metadata for namelens.
package version

import (
	"runtime"
	"runtime/debug"
)

// Overridden at build time:
// go build -ldflags "-X namelens/internal/version.Version=0.3.0 -X namelens/internal/version.Commit=abc123"
var (
	Version   = "0.3.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Build is the metadata printed by `namelens version --format json`.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Current returns the build metadata. Without ldflags the commit and date
// come from the VCS stamp embedded by the go tool, when present.
func Current() Build {
	b := Build{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && b.Commit == "unknown":
				b.Commit = s.Value
			case s.Key == "vcs.time" && b.BuildDate == "unknown":
				b.BuildDate = s.Value
			}
		}
	}
	return b
}

// Info returns a formatted version string
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	b := Current()
	return "namelens version " + b.Version + "\n" +
		"Commit: " + b.Commit + "\n" +
		"Built: " + b.BuildDate + "\n" +
		"Go: " + b.GoVersion + " " + b.Platform
}
