package buildinfo

import (
	"runtime/debug"
	"testing"
)

func TestFromSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings []debug.BuildSetting
		want     string
	}{
		{"no vcs", nil, "dev"},
		{"clean", []debug.BuildSetting{{Key: "vcs.revision", Value: "05ffee5a1b2c"}}, "dev+05ffee5"},
		{"dirty", []debug.BuildSetting{
			{Key: "vcs.revision", Value: "05ffee5a1b2c"},
			{Key: "vcs.modified", Value: "true"},
		}, "dev+05ffee5.dirty"},
		{"short revision", []debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}}, "dev+abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fromSettings(tt.settings); got != tt.want {
				t.Errorf("fromSettings = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersionNotEmpty(t *testing.T) {
	if Version() == "" {
		t.Error("Version() is empty")
	}
}

func TestVersionWithLdflags(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "1.2.3"
	if got := Version(); got != "1.2.3" {
		t.Errorf("Version() = %q, want 1.2.3", got)
	}
}
