package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrPasswordMissMatch = errors.New("password mismatch")
	ErrDuplicateKey      = errors.New("duplicate key")
	// ErrUsernameTaken частный случай ErrDuplicateKey: логин уже занят.
	ErrUsernameTaken = fmt.Errorf("%w: username already taken", ErrDuplicateKey)
	ErrUnknown           = errors.New("unknown error")

	ErrOwnerConflict = errors.New("owner conflict")

	ErrInvalidSignature     = errors.New("invalid signature")
	ErrMalformedEvent       = errors.New("malformed event")
	ErrInvalidReferralCode  = errors.New("invalid referral code")
	ErrInvalidCheckout      = errors.New("invalid checkout request")
	ErrProcessorUnavailable = errors.New("payment processor unavailable")
)

// MalformedEventError событие процессора без обязательных полей метаданных.
// errors.Is(err, ErrMalformedEvent) для него возвращает true.
type MalformedEventError struct {
	Field  string
	Reason string
}

func NewMalformedEventError(field, reason string) error {
	return &MalformedEventError{Field: field, Reason: reason}
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event: field %s: %s", e.Field, e.Reason)
}

func (e *MalformedEventError) Is(target error) bool {
	return target == ErrMalformedEvent
}
