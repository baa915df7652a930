// Package version reports how the running binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set with -ldflags "-X ..." by release builds.
var (
	version   = ""
	buildDate = ""
	gitCommit = ""
)

// Version describes a build.
type Version struct {
	Version string `json:"version"`
	// BuildDate is zero when unknown.
	BuildDate time.Time `json:"buildDate"`
	GitCommit string    `json:"gitCommit,omitempty"`
	// GitTreeDirty is set when the build included uncommitted changes.
	GitTreeDirty bool   `json:"gitTreeDirty"`
	GoVersion    string `json:"goVersion"`
	Platform     string `json:"platform"`
}

// GetVersion returns the version of the running binary. Values missing from
// the linker flags are taken from the build information Go embeds.
func GetVersion() Version {
	return newVersion(version, buildDate, gitCommit, readBuildSettings())
}

func readBuildSettings() map[string]string {
	settings := map[string]string{}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return settings
	}
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	return settings
}

func newVersion(ver, date, commit string, settings map[string]string) Version {
	v := Version{
		Version:   ver,
		GitCommit: commit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
	if v.GitCommit == "" {
		v.GitCommit = settings["vcs.revision"]
	}
	if date == "" {
		date = settings["vcs.time"]
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		v.BuildDate = t
	}
	v.GitTreeDirty = settings["vcs.modified"] == "true"

	if v.Version == "" || v.GitTreeDirty {
		v.Version = "devel"
		if len(v.GitCommit) >= 7 {
			v.Version += "+" + v.GitCommit[:7]
		} else {
			v.Version += "+unknown"
		}
		if v.GitTreeDirty {
			v.Version += ".dirty"
		}
	}
	return v
}
