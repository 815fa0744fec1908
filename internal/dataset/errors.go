package dataset

import (
	"errors"
	"fmt"
)

// RuleErrorCode categorizes rejected structural edits.
type RuleErrorCode string

const (
	// ErrCodeNotFound indicates the referenced type or subject does not exist.
	ErrCodeNotFound RuleErrorCode = "NOT_FOUND"

	// ErrCodeUnknownType indicates a subject would reference a missing type.
	ErrCodeUnknownType RuleErrorCode = "UNKNOWN_TYPE"

	// ErrCodeLastType indicates deletion of the only remaining type.
	ErrCodeLastType RuleErrorCode = "LAST_TYPE"

	// ErrCodeDuplicateID indicates a create with an id already in use.
	ErrCodeDuplicateID RuleErrorCode = "DUPLICATE_ID"

	// ErrCodeEmptyName indicates a rename to a blank name.
	ErrCodeEmptyName RuleErrorCode = "EMPTY_NAME"

	// ErrCodeAmbiguous indicates a name matching more than one record.
	ErrCodeAmbiguous RuleErrorCode = "AMBIGUOUS"
)

// RuleError is returned by every rule that leaves the dataset unchanged.
type RuleError struct {
	Code    RuleErrorCode
	Message string
	ID      string
}

func (e *RuleError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s (id=%s)", e.Code, e.Message, e.ID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newRuleError(code RuleErrorCode, id, format string, args ...any) *RuleError {
	return &RuleError{Code: code, ID: id, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the RuleErrorCode carried by err, or "".
func CodeOf(err error) RuleErrorCode {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsNotFound reports whether err is a NOT_FOUND rule error.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsNoOp reports whether err is a defensive rejection arising from benign
// double invocation rather than bad input. Callers log these and carry on.
func IsNoOp(err error) bool {
	return CodeOf(err) == ErrCodeLastType
}
