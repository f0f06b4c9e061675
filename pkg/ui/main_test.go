package ui

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	os.Setenv("CLUSTERVIEW_TEST_MODE", "1")
	// Watchers in tests poll so they behave the same on every filesystem.
	os.Setenv("CLUSTERVIEW_FORCE_POLL", "1")
	os.Unsetenv("CLUSTERVIEW_DEBUG")

	os.Exit(m.Run())
}
