// Package version provides application version and build info.
//
//nolint:revive
package version

import (
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
)

var (
	// Version is the current version of the application.
	// It can be overridden by ldflags at build time.
	Version = "dev"
	// CommitHash is the git commit hash at build time.
	// It can be overridden by ldflags at build time.
	CommitHash = ""
	// BuildTime is the time when the application was built.
	// It can be overridden by ldflags at build time.
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
}

var (
	once   sync.Once
	cached Info
)

// Get returns the build info, falling back to VCS stamps when ldflags were not set.
func Get() Info {
	once.Do(func() {
		cached = Info{
			Version:   Version,
			Commit:    CommitHash,
			BuildTime: BuildTime,
			GoVersion: runtime.Version(),
		}
		if cached.Commit != "" {
			return
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs.revision":
					cached.Commit = setting.Value
				case "vcs.time":
					cached.BuildTime = setting.Value
				}
			}
		}
	})
	return cached
}

// ShortCommit returns the first 7 characters of the commit hash.
func (i Info) ShortCommit() string {
	if len(i.Commit) > 7 {
		return i.Commit[:7]
	}
	return i.Commit
}

// String formats the version with the short commit, e.g. "v1.2.0 (abc1234)".
func (i Info) String() string {
	if i.Commit == "" {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, i.ShortCommit())
}

// LogAttr groups the build info for structured logs.
func (i Info) LogAttr() slog.Attr {
	return slog.Group("build",
		slog.String("version", i.Version),
		slog.String("commit", i.ShortCommit()),
		slog.String("go", i.GoVersion),
	)
}
