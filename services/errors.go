package services

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by all services. Handlers map these onto HTTP status
// codes; everything else wraps one of them so errors.Is keeps working through
// fmt.Errorf chains.
var (
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateIdentity = errors.New("duplicate identity")
	ErrRoleConflict      = errors.New("role conflict")
	ErrAlreadyInProgress = errors.New("stake already in progress")
	ErrAlreadyStaked     = errors.New("stake already confirmed")
	ErrUpstream          = errors.New("upstream service failed")
	ErrPersistence       = errors.New("persistence failed")
	ErrNotFound          = errors.New("not found")
)

// validationError wraps ErrValidation naming the offending field.
func validationError(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}

// duplicateError wraps ErrDuplicateIdentity naming the conflicting field.
func duplicateError(field string) error {
	return fmt.Errorf("%w: %s is already taken", ErrDuplicateIdentity, field)
}
