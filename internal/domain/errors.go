package domain

// Sentinel errors shared across services and adapters. All of them are
// recoverable at the caller boundary; the HTTP adapter maps them to status
// codes.
const (
	ErrNotFound         = errString("not found")
	ErrSchemaViolation  = errString("unknown classification category")
	ErrValidation       = errString("validation failed")
	ErrInsufficientData = errString("at least two source records required")
	ErrConflict         = errString("already in progress")
)

type errString string

func (e errString) Error() string { return string(e) }
