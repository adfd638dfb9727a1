package engine

import (
	"fmt"

	"github.com/vietddude/syncer/internal/core/domain"
)

// ErrorPolicy decides what a failed loop iteration does.
type ErrorPolicy string

const (
	// FailFast propagates the failure out of Run, terminating the loop.
	FailFast ErrorPolicy = "fail_fast"

	// CatchAndBackoff absorbs the failure and retries after one backoff
	// sleep. The failed window is re-fetched from the unchanged cursor,
	// so commits stay idempotent.
	CatchAndBackoff ErrorPolicy = "catch_and_backoff"
)

// ParseErrorPolicy maps a config string to a policy. Empty selects FailFast.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case "":
		return FailFast, nil
	case FailFast, CatchAndBackoff:
		return ErrorPolicy(s), nil
	default:
		return "", fmt.Errorf("%w: unknown error policy %q", domain.ErrConfiguration, s)
	}
}

// ShouldAbsorb reports whether an iteration failure is swallowed. A failure
// observed after a stop request is always absorbed: the loop is exiting
// anyway and a half-cancelled RPC is not worth a non-zero exit.
func (p ErrorPolicy) ShouldAbsorb(stopRequested bool) bool {
	if stopRequested {
		return true
	}
	return p == CatchAndBackoff
}
