// Package guard switches the process into test mode when imported, so tests
// that build the app never start background side effects. An explicit
// KIRANA_TEST_MODE value, even "0", is left alone.
package guard

import "os"

// EnvKey is the variable read by app.InTestMode.
const EnvKey = "KIRANA_TEST_MODE"

func init() {
	if _, set := os.LookupEnv(EnvKey); !set {
		_ = os.Setenv(EnvKey, "1")
	}
}
