package rules_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures no goroutines leak across the dispatcher's tests: the
// dispatcher runs file-local rules on a bounded worker pool per Run call,
// and a worker that never returns would otherwise go unnoticed.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	)
}
