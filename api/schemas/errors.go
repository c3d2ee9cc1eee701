package schemas

import (
	"context"
	"errors"
)

// ErrorKind names one class of operational failure. Kinds travel inside
// structured results so a caller can branch on them without parsing messages.
type ErrorKind string

const (
	KindSessionNotFound     ErrorKind = "SessionNotFound"
	KindDuplicateIdentifier ErrorKind = "DuplicateIdentifier"
	KindDriverInit          ErrorKind = "DriverInitializationError"
	KindElementNotFound     ErrorKind = "ElementNotFound"
	KindTimeout             ErrorKind = "Timeout"
	KindScriptExecution     ErrorKind = "ScriptExecutionError"
	KindNavigation          ErrorKind = "NavigationError"
	KindInvalidSelector     ErrorKind = "InvalidSelector"
	KindUnknownActionType   ErrorKind = "UnknownActionType"
	KindRecordingActive     ErrorKind = "RecordingAlreadyActive"
	KindNoActiveRecording   ErrorKind = "NoActiveRecording"
	KindScenarioNotFound    ErrorKind = "ScenarioNotFound"
	KindConfirmationNeeded  ErrorKind = "ConfirmationRequired"
	KindUndefinedVariable   ErrorKind = "UndefinedVariable"
	KindStorage             ErrorKind = "StorageError"
	KindInvalidArgument     ErrorKind = "InvalidArgument"
	KindSessionLimit        ErrorKind = "SessionLimitExceeded"
	// KindInternal covers failures outside the published taxonomy, such as a
	// driver error that defies classification.
	KindInternal ErrorKind = "InternalError"
)

// Sentinel errors for the operational taxonomy. Components wrap these with
// fmt.Errorf("...: %w", ...) so call sites keep context while errors.Is still
// matches the sentinel.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrDuplicateIdentifier = errors.New("session identifier already in use")
	ErrDriverInit          = errors.New("driver initialization failed")
	ErrElementNotFound     = errors.New("element not found")
	ErrTimeout             = errors.New("action timed out")
	ErrScriptExecution     = errors.New("script execution failed")
	ErrNavigation          = errors.New("navigation failed")
	ErrInvalidSelector     = errors.New("invalid selector")
	ErrUnknownActionType   = errors.New("unknown action type")
	ErrRecordingActive     = errors.New("recording already active")
	ErrNoActiveRecording   = errors.New("no active recording")
	ErrScenarioNotFound    = errors.New("scenario not found")
	ErrConfirmationNeeded  = errors.New("confirmation required")
	ErrUndefinedVariable   = errors.New("undefined variable")
	ErrStorage             = errors.New("scenario storage failure")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrSessionLimit        = errors.New("session limit reached")
)

// kindTable pairs each sentinel with its wire kind. Order matters only in that
// more specific sentinels must not be shadowed by broader ones; all entries
// here are disjoint.
var kindTable = []struct {
	err  error
	kind ErrorKind
}{
	{ErrSessionNotFound, KindSessionNotFound},
	{ErrDuplicateIdentifier, KindDuplicateIdentifier},
	{ErrDriverInit, KindDriverInit},
	{ErrElementNotFound, KindElementNotFound},
	{ErrTimeout, KindTimeout},
	{ErrScriptExecution, KindScriptExecution},
	{ErrNavigation, KindNavigation},
	{ErrInvalidSelector, KindInvalidSelector},
	{ErrUnknownActionType, KindUnknownActionType},
	{ErrRecordingActive, KindRecordingActive},
	{ErrNoActiveRecording, KindNoActiveRecording},
	{ErrScenarioNotFound, KindScenarioNotFound},
	{ErrConfirmationNeeded, KindConfirmationNeeded},
	{ErrUndefinedVariable, KindUndefinedVariable},
	{ErrStorage, KindStorage},
	{ErrInvalidArgument, KindInvalidArgument},
	{ErrSessionLimit, KindSessionLimit},
}

// Classify maps an error chain onto the taxonomy. Context deadline errors
// count as timeouts regardless of how deep they are wrapped, because the
// executor enforces per-action deadlines through contexts.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindInternal
}
