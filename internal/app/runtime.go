package app

import (
	"os"
	"runtime/debug"
	"strconv"
	"sync"
)

const testModeEnv = "KIRANA_TEST_MODE"

var (
	testModeMu     sync.RWMutex
	testModeCached *bool
)

// InTestMode reports whether KIRANA_TEST_MODE holds a true value. Binaries
// return early under test mode instead of dialing postgres and redis.
func InTestMode() bool {
	testModeMu.RLock()
	cached := testModeCached
	testModeMu.RUnlock()
	if cached != nil {
		return *cached
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads the environment and returns the new value.
func RefreshTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(testModeEnv))
	on = on && err == nil
	testModeMu.Lock()
	testModeCached = &on
	testModeMu.Unlock()
	return on
}

// BuildVersion returns the module version and short VCS revision stamped by
// the go tool, or "dev" for local builds.
func BuildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	version := info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return version + "+" + s.Value[:7]
		}
	}
	return version
}
