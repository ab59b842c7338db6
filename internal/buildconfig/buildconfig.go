// Package buildconfig exposes build metadata injected with -ldflags.
package buildconfig

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

// Info is the build metadata reported by /health and agentrun version.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

// Current returns the build metadata. Without ldflags the commit falls back
// to the VCS revision recorded by the Go toolchain.
func Current() Info {
	info := Info{Version: version, Commit: commit, GoVersion: runtime.Version()}
	if info.Commit != "unknown" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				info.Commit = s.Value
			}
		}
	}
	return info
}

func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, %s)", i.Version, i.Commit, i.GoVersion)
}
