// Package versions exposes the build information of the binary.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build information, set at link time with
// -ldflags "-X github.com/stacklok/toolhive-catalog/internal/versions.Version=..."
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the build information. When the link-time values
// are unset it falls back to the VCS settings embedded by the go command.
func GetVersionInfo() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	if info.Commit != "" && info.BuildDate != "" {
		return info
	}
	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = setting.Value
			}
		case "vcs.time":
			if info.BuildDate == "" {
				info.BuildDate = setting.Value
			}
		}
	}
	return info
}

// String formats the information for the version command
func (i Info) String() string {
	commit := i.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("thv-catalog %s (commit %s, built %s, %s %s)",
		i.Version, orUnknown(commit), orUnknown(i.BuildDate), i.GoVersion, i.Platform)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
