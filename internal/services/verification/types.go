package verification

// OutcomeState is the normalized application-level verification state,
// independent of any vendor's status vocabulary.
type OutcomeState string

const (
	StatePending   OutcomeState = "pending"
	StateCompleted OutcomeState = "completed"
	StateFailed    OutcomeState = "failed"
)

// OutcomeSource identifies which channel produced an outcome.
type OutcomeSource string

const (
	SourcePoll    OutcomeSource = "poll"
	SourceWebhook OutcomeSource = "webhook"
)

// StatusUnknown is the sentinel used when no recognizable status shape is
// found in a provider payload. It maps to pending rather than failing the
// caller; a provider schema change should never crash the verification UX.
const StatusUnknown = "UNKNOWN"

// Outcome is a normalized verification result. RawStatus keeps the
// original vendor string for diagnostics.
type Outcome struct {
	State     OutcomeState  `json:"state"`
	RawStatus string        `json:"raw_status"`
	Source    OutcomeSource `json:"source"`
}

// CompletionEvent is published when a user's verification completes.
type CompletionEvent struct {
	UserID uint
	Source OutcomeSource
}
