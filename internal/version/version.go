// Package version reports the kmetrics build.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set at build time:
//
//	go build -ldflags "-X kmetrics/internal/version.Version=1.0.0 -X kmetrics/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Build describes the running binary.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get returns the ldflags values, filling commit and date from the Go
// module build info when they were not set.
func Get() Build {
	b := Build{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		fillFromSettings(&b, info.Settings)
	}
	return b
}

func fillFromSettings(b *Build, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "unknown" && s.Value != "" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.BuildDate == "unknown" && s.Value != "" {
				b.BuildDate = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
}

// Short is the version with an abbreviated commit, e.g. "0.4.0 (abc1234)".
func (b Build) Short() string {
	if b.Commit == "unknown" || len(b.Commit) <= 7 {
		return b.Version
	}
	s := b.Version + " (" + b.Commit[:7]
	if b.Modified {
		s += "-dirty"
	}
	return s + ")"
}

// String renders the multi-line `kmetrics version` output.
func (b Build) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "kmetrics version %s\n", b.Version)
	fmt.Fprintf(&sb, "Commit: %s\n", b.Commit)
	fmt.Fprintf(&sb, "Built: %s\n", b.BuildDate)
	fmt.Fprintf(&sb, "Go: %s %s", b.GoVersion, b.Platform)
	return sb.String()
}
