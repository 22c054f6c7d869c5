package db

import (
	"errors"
	"fmt"
)

var (
	ErrDbTypeRegistered = errors.New("db type already registered")
	ErrDbUnknownType    = errors.New("unknown db type")
	ErrDbExists         = errors.New("db already exists")
	ErrDbDoesNotExist   = errors.New("db does not exist")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrCreateDBFailed   = errors.New("failed to create db")
	ErrOpenDBFailed     = errors.New("failed to open db")

	ErrUniqueConstraint = errors.New("unique constraint violation")
	ErrCheckConstraint  = errors.New("check constraint violation")
	ErrBusy             = errors.New("db is busy")
)

// ConstraintError is a backend agnostic constraint violation. It matches
// its Kind with errors.Is and unwraps to the driver error.
type ConstraintError struct {
	Kind    error
	DBError error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.DBError)
}

func (e *ConstraintError) Is(target error) bool {
	return target == e.Kind
}

func (e *ConstraintError) Unwrap() error {
	return e.DBError
}
