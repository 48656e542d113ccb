// Package buildinfo reports the running binary's version.
package buildinfo

import "runtime/debug"

// version is set at build time:
//
//	go build -ldflags "-X tools.zach/dev/servercard/internal/buildinfo.version=1.4.0"
//
// Without ldflags, [Version] derives "dev+<hash>" from the VCS stamp.
var version = "dev"

// Version returns the ldflags version, or a dev tag built from the embedded
// VCS revision.
func Version() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	return fromSettings(info.Settings)
}

func fromSettings(settings []debug.BuildSetting) string {
	var revision string
	var dirty bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}
