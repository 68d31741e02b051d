package domain

// OutcomeKind is the terminal state of one dispatched update.
type OutcomeKind string

const (
	OutcomeNone              OutcomeKind = "none" // acknowledged silently, no reply owed
	OutcomeEchoed            OutcomeKind = "echoed"
	OutcomeProcessedDocument OutcomeKind = "processed_document"
	OutcomeUnsupported       OutcomeKind = "unsupported"
	OutcomeError             OutcomeKind = "error"
)

// DispatchOutcome is the result of processing one update. Constructed and
// consumed within a single request; never shared across requests.
type DispatchOutcome struct {
	Kind      OutcomeKind
	ReplyText string // empty when no reply is owed
	Detail    string // failure detail for logs/operators, never sent to the chat
}
