package mdppst

import (
	"fmt"
	"runtime/debug"
	"strconv"
)

// Set at build time via `-ldflags "-X 'github.com/geniejhang/mdppst/src.MDPPST_VERSION=X'"`
var MDPPST_VERSION string

func getBuildSettingOrDefault(bi *debug.BuildInfo, key string, defaultValue string) string {
	for _, bs := range bi.Settings {
		if bs.Key == key {
			return bs.Value
		}
	}

	return defaultValue
}

func PrintVersion() {
	var buildInfo, _ = debug.ReadBuildInfo()

	var (
		buildTimeStr              = getBuildSettingOrDefault(buildInfo, "vcs.time", "UNKNOWN")
		buildCommit               = getBuildSettingOrDefault(buildInfo, "vcs.revision", "UNKNOWN")
		buildDirtyStr             = getBuildSettingOrDefault(buildInfo, "vcs.modified", "INVALID")
		buildDirty, buildDirtyErr = strconv.ParseBool(buildDirtyStr)
	)

	var version = MDPPST_VERSION
	if version == "" {
		version = "development"
	}

	fmt.Printf("mdppst %s\n", version)
	fmt.Printf("built %s from %s", buildTimeStr, buildCommit)
	if buildDirtyErr == nil && buildDirty {
		fmt.Printf(" (modified)")
	}
	fmt.Printf("\n")
}
