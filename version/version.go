// Package version holds the harness version reported by the CLI.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is a semantic version (http://semver.org/).
type Version struct {
	Major uint
	Minor uint
	Patch uint
}

// Current is the version of this build.
var Current = Version{Major: 0, Minor: 3, Patch: 0}

// Full returns the version as major.minor.patch.
func Full() string {
	return fmt.Sprintf("%d.%d.%d", Current.Major, Current.Minor, Current.Patch)
}

// FullWithCommit appends the VCS revision stamped into the binary, if any.
func FullWithCommit() string {
	if commit := vcsRevision(); commit != "" {
		return fmt.Sprintf("%s (commit/%s, %s, %s/%s)", Full(), commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	}
	return fmt.Sprintf("%s (%s, %s/%s)", Full(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Details returns the version details as a map, e.g. for JSON output.
func Details() map[string]string {
	d := map[string]string{
		"version":    "v" + Full(),
		"go_version": runtime.Version(),
		"go_os":      runtime.GOOS,
		"go_arch":    runtime.GOARCH,
	}
	if commit := vcsRevision(); commit != "" {
		d["commit"] = commit
	}
	return d
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 10 {
				return s.Value[:10]
			}
			return s.Value
		}
	}
	return ""
}
