package app

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}
}

// currentVersion falls back to the module version stamped by `go install`
// when no release version was linked in.
func currentVersion() versionInfo {
	info := versionInfo{Version: buildVersion, Commit: buildCommit, Date: buildDate, GoVersion: runtime.Version()}
	if info.Version == "dev" {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
	}
	return info
}

func BuildVersionString() string {
	v := currentVersion()
	return fmt.Sprintf("%s (%s) %s", v.Version, v.Commit, v.Date)
}
