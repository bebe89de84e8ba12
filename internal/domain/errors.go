package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every input-validation failure in this package.
var ErrValidation = errors.New("validation failed")

// ErrNotFound reports a task or project id that does not resolve.
var ErrNotFound = errors.New("not found")

var (
	ErrEmptyTitle      = fmt.Errorf("%w: empty title", ErrValidation)
	ErrEmptyName       = fmt.Errorf("%w: empty name", ErrValidation)
	ErrEmptyTag        = fmt.Errorf("%w: empty tag", ErrValidation)
	ErrDuplicateTag    = fmt.Errorf("%w: tag already present", ErrValidation)
	ErrIndexOutOfRange = fmt.Errorf("%w: index out of range", ErrValidation)
	ErrInvalidID       = fmt.Errorf("%w: invalid id", ErrValidation)
	ErrInvalidColumn   = fmt.Errorf("%w: invalid column", ErrValidation)
)
