// Package testing switches the application into test mode. Test packages
// import it for its side effects.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("AICS_TEST_MODE", "1")
		if os.Getenv("LOG_FORMAT") == "" {
			_ = os.Setenv("LOG_FORMAT", "text")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
