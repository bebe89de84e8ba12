package app

import "errors"

// Persistence errors. Stores wrap these so callers can branch with errors.Is.
var (
	ErrStateNotFound = errors.New("state not found")
	ErrCorruptState  = errors.New("corrupt state")
	ErrSaveFailed    = errors.New("save failed")
)
