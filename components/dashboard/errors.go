package dashboard

import (
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// Error taxonomy. Callers match with errors.Is; wrapped values carry
// context via j.KV.
var (
	// ErrLimitExceeded reports a dashboard or widget cap violation. No state changes.
	ErrLimitExceeded = errors.New("limit exceeded", j.C("ERR_7d2f0c9a41be5e13"))
	// ErrValidation reports an invalid widget spec (missing type, node or metric).
	ErrValidation = errors.New("validation failed", j.C("ERR_1a9e44c07b3d2f86"))
	// ErrPolicy reports an operation refused by policy, e.g. deleting the last dashboard.
	ErrPolicy = errors.New("operation refused by policy", j.C("ERR_c05b7e21d98a4f30"))
	// ErrPersistence wraps local cache or remote store failures. Logged, never surfaced.
	ErrPersistence = errors.New("persistence failure", j.C("ERR_5e81fa3cd2079b64"))
	// ErrFetch wraps telemetry, history and search failures.
	ErrFetch = errors.New("fetch failure", j.C("ERR_93cd6b0e1f4a8725"))

	ErrNotFound      = errors.New("not found", j.C("ERR_0f64a2b9e7c13d58"))
	ErrOverlap       = errors.New("rectangles overlap", j.C("ERR_b2e8147fa05d6c39"))
	ErrGestureActive = errors.New("gesture already active", j.C("ERR_4ad07e5b93c2f168"))
	ErrNotConfirmed  = errors.New("confirmation required", j.C("ERR_e6190c3d7ab854f2"))
)
