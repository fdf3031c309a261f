// Package version reports the bytereactor release and the VCS state it was built from.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// Version is the semantic version of bytereactor. Release builds may override it with -ldflags.
var Version = "0.1.0"

// Info describes a bytereactor build.
type Info struct {
	// Version is the semantic version of the build.
	Version string

	// Commit is the VCS revision the binary was built from, empty when unknown.
	Commit string

	// CommitTime is when Commit was made, zero when unknown.
	CommitTime time.Time

	// Dirty is true if the working tree had uncommitted changes at build time.
	Dirty bool

	// GoVersion is the Go release the binary was built with.
	GoVersion string
}

var (
	buildInfo     Info
	buildInfoOnce sync.Once
)

// GetInfo returns the version information of the running binary.
func GetInfo() Info {
	buildInfoOnce.Do(func() {
		buildInfo = Info{Version: Version, GoVersion: runtime.Version()}
		if info, ok := debug.ReadBuildInfo(); ok {
			buildInfo.applySettings(info.Settings)
		}
	})
	return buildInfo
}

// applySettings fills the VCS fields from build settings recorded by the go command.
func (i *Info) applySettings(settings []debug.BuildSetting) {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			i.Commit = setting.Value
		case "vcs.time":
			if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
				i.CommitTime = t
			}
		case "vcs.modified":
			i.Dirty = setting.Value == "true"
		}
	}
}

// Revision returns the abbreviated commit, suffixed with "-dirty" for builds of a modified tree.
func (i Info) Revision() string {
	revision := i.Commit
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if revision != "" && i.Dirty {
		revision += "-dirty"
	}
	return revision
}

// Short returns a single-line version such as "0.1.0+1a2b3c4".
func (i Info) Short() string {
	if revision := i.Revision(); revision != "" {
		return i.Version + "+" + revision
	}
	return i.Version
}

// String returns a multi-line description of the build.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "bytereactor version %s\n", i.Version)
	if revision := i.Revision(); revision != "" {
		fmt.Fprintf(&sb, "  Commit:     %s\n", revision)
	}
	if !i.CommitTime.IsZero() {
		fmt.Fprintf(&sb, "  Built:      %s\n", i.CommitTime.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(&sb, "  Go version: %s\n", i.GoVersion)
	return sb.String()
}
