package model

// OutcomeKind classifies how a stage or a single item inside a stage ended.
type OutcomeKind string

const (
	OutcomeCompleted          OutcomeKind = "completed"
	OutcomeSkipped            OutcomeKind = "skipped"
	OutcomeRecoverableFailure OutcomeKind = "recoverable_failure"
	OutcomeFatalFailure       OutcomeKind = "fatal_failure"
)

// Failed reports whether the outcome represents any kind of failure.
func (k OutcomeKind) Failed() bool {
	return k == OutcomeRecoverableFailure || k == OutcomeFatalFailure
}

// RDS instance statuses the promotion waiter cares about.
const (
	DBStatusAvailable              = "available"
	DBStatusDeleted                = "deleted"
	DBStatusDeleting               = "deleting"
	DBStatusFailed                 = "failed"
	DBStatusIncompatibleRestore    = "incompatible-restore"
	DBStatusIncompatibleParameters = "incompatible-parameters"
)

// IsTerminalDBStatus reports whether an RDS instance in this status can never
// become available without operator action.
func IsTerminalDBStatus(status string) bool {
	switch status {
	case DBStatusDeleted, DBStatusDeleting, DBStatusFailed,
		DBStatusIncompatibleRestore, DBStatusIncompatibleParameters:
		return true
	}
	return false
}
