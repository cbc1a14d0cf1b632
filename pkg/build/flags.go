// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata stamped into the binary at link time:
//
//	go build -ldflags "-X spectrum/pkg/build.buildName=spectrum \
//	    -X spectrum/pkg/build.buildTime=$(date -u +%FT%TZ) \
//	    -X spectrum/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	    -X spectrum/pkg/build.buildVersion=0.3.0"
//
// A binary built without any of the flags (go run, go test) reports
// placeholder values. A binary with only some of them is rejected by
// Initialize, since that points at a broken build script.
package build

import "fmt"

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

const (
	DefaultName        = "spectrum"
	DefaultDescription = "Live I/Q spectrum analyser for sound-card SDR receivers"
	unknown            = "unknown"
)

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() Info {
	return Info{
		Name:        DefaultName,
		Description: DefaultDescription,
		Time:        unknown,
		Commit:      unknown,
		Version:     unknown,
	}
}

// Initialize validates the link-time values and copies them into the Info
// returned by Get. It must run before Get is used.
func Initialize() error {
	buildInfo = defaultInfo()
	if buildName == "" && buildTime == "" && buildCommit == "" && buildVersion == "" {
		return nil
	}

	required := []struct {
		flag  string
		value string
	}{
		{"BuildName", buildName},
		{"BuildTime", buildTime},
		{"BuildCommit", buildCommit},
		{"BuildVersion", buildVersion},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.flag)
		}
	}

	buildInfo.Name = buildName
	buildInfo.Time = buildTime
	buildInfo.Commit = buildCommit
	buildInfo.Version = buildVersion
	return nil
}

// Get returns the build information.
func Get() Info {
	return buildInfo
}

// Stamped reports whether the binary was built with ldflags.
func (i Info) Stamped() bool {
	return i.Version != unknown
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
