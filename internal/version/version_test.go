package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	origVersion := Version
	origCommit := Commit
	defer func() {
		Version = origVersion
		Commit = origCommit
	}()

	tests := []struct {
		name    string
		version string
		commit  string
		want    string
	}{
		{"unknown commit", "1.0.0", "unknown", "1.0.0"},
		{"short commit", "1.0.0", "abc", "1.0.0"},
		{"exactly 7 char commit", "2.0.0", "1234567", "2.0.0"},
		{"full commit hash", "1.0.0", "abc1234567890", "1.0.0 (abc1234)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version = tt.version
			Commit = tt.commit
			if got := Info(); got != tt.want {
				t.Errorf("Info() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCurrent(t *testing.T) {
	origCommit := Commit
	defer func() { Commit = origCommit }()
	Commit = "deadbeefcafe"

	b := Current()
	if b.Version != Version {
		t.Errorf("Version = %q, want %q", b.Version, Version)
	}
	if b.Commit != "deadbeefcafe" {
		t.Errorf("ldflags commit should win, got %q", b.Commit)
	}
	if b.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q", b.GoVersion)
	}
	if !strings.Contains(b.Platform, "/") {
		t.Errorf("Platform = %q", b.Platform)
	}
}

func TestFull(t *testing.T) {
	full := Full()
	for _, want := range []string{"namelens version " + Version, "Commit:", "Built:", "Go:"} {
		if !strings.Contains(full, want) {
			t.Errorf("Full() missing %q:\n%s", want, full)
		}
	}
}
