package errors

import "errors"

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrSafetyGate      = errors.New("refusing to destroy staging environment")
	ErrProfileMismatch = errors.New("aws profile mismatch")
	ErrChildProcess    = errors.New("child process failed")
	ErrNoMFADevice     = errors.New("no MFA device registered for user")
)
