package domain

import "errors"

var (
	ErrCustomerNotFound       = errors.New("customer not found")
	ErrInvalidIdentifier      = errors.New("invalid identifier")
	ErrTemporarilyUnavailable = errors.New("temporarily unavailable")
)
