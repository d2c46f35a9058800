package controller

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that controller tests leave no goroutines behind;
// stray timer callbacks or detection goroutines would show up here.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("testing.(*T).Run"),
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
	)
}
