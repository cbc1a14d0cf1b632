// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origInfo    Info
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origInfo = buildInfo

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	buildInfo = origInfo

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
		wantStamped bool
	}{
		{"Unstamped", "", "", "", "", "", false},
		{"Missing BuildName", "", "2026-10-01", "abcdef123", "v1.0.0", "BuildName is required", false},
		{"Missing BuildTime", "spectrum", "", "abcdef123", "v1.0.0", "BuildTime is required", false},
		{"Missing BuildCommit", "spectrum", "2026-10-01", "", "v1.0.0", "BuildCommit is required", false},
		{"Missing BuildVersion", "spectrum", "2026-10-01", "abcdef123", "", "BuildVersion is required", false},
		{"Success Case", "spectrum", "2026-10-01", "abcdef123", "v1.0.0", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				if err == nil {
					t.Fatalf("Initialize() expected error, got nil")
				}
				if err.Error() != tt.wantErrMsg {
					t.Errorf("Initialize() error = %v, want %v", err, tt.wantErrMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}

			info := Get()
			if info.Stamped() != tt.wantStamped {
				t.Errorf("Stamped() = %v, want %v", info.Stamped(), tt.wantStamped)
			}
			if !tt.wantStamped {
				if info.Name != DefaultName || info.Version != "unknown" {
					t.Errorf("unstamped info = %+v", info)
				}
				return
			}
			if info.Name != tt.buildName || info.Time != tt.buildTime ||
				info.Commit != tt.buildCommit || info.Version != tt.buildVer {
				t.Errorf("Get() = %+v", info)
			}
			if info.Description != DefaultDescription {
				t.Errorf("Description = %q", info.Description)
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Name: "spectrum", Time: "2026-10-01", Commit: "abcdef1", Version: "v0.3.0"}
	want := "spectrum v0.3.0 (commit abcdef1, built 2026-10-01)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
