// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "dev"

	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"

	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"
)

// Info is the resolved build metadata.
type Info struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
}

// Get returns the build metadata. A binary built without -ldflags falls back
// to the module version and VCS revision recorded by the Go toolchain.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.GitCommit == "unknown":
			info.GitCommit = s.Value
		case s.Key == "vcs.time" && info.BuildDate == "unknown":
			info.BuildDate = s.Value
		}
	}
	return info
}

// String formats the metadata on one line.
func (i Info) String() string {
	return fmt.Sprintf("waittrace %s (commit %s, built %s, %s)", i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}
