package secretstore

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrWrongPassword          = errors.New("wrong password")
	ErrIllegalPassword        = errors.New("illegal password")
	ErrSamePassword           = errors.New("new password same as the original one")
	ErrConcurrentModification = errors.New("secret modified concurrently")

	ErrInvalidAddress  = errors.New("invalid address")
	ErrInvalidPubKey   = errors.New("invalid public key")
	ErrEmptySecret     = errors.New("empty encrypted secret")
	ErrAddressExists   = errors.New("address already exists")
	ErrAddressNotFound = errors.New("address not found")
	ErrHDSeedNotFound  = errors.New("hd seed not found")
	ErrHDMBIdExists    = errors.New("hdm bid already exists")
	ErrNilPointer      = errors.New("the pointer is nil")

	ErrMalformedPasswordSeed = errors.New("malformed password seed")

	ErrDuplicateProvisioning = errors.New("hdm address index already provisioned")
	ErrStaleCompletion       = errors.New("hdm address not staged for completion")
	ErrIncompleteHDMAddress  = errors.New("incomplete hdm address")
	ErrHDMAddressNotFound    = errors.New("hdm address not found")

	ErrDatabase = errors.New("secret store database error")
)

// storeErrors are returned as is by the store, everything else coming out
// of the persistence layer is wrapped in a DBError.
var storeErrors = []error{
	ErrWrongPassword,
	ErrIllegalPassword,
	ErrSamePassword,
	ErrConcurrentModification,
	ErrInvalidAddress,
	ErrInvalidPubKey,
	ErrEmptySecret,
	ErrAddressExists,
	ErrAddressNotFound,
	ErrHDSeedNotFound,
	ErrHDMBIdExists,
	ErrNilPointer,
	ErrMalformedPasswordSeed,
	ErrDuplicateProvisioning,
	ErrStaleCompletion,
	ErrIncompleteHDMAddress,
	ErrHDMAddressNotFound,
	ErrDatabase,
}

// DBError reports a persistence failure during Op. It matches ErrDatabase
// with errors.Is and unwraps to the underlying failure.
type DBError struct {
	Op  string
	Err error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrDatabase, e.Op, e.Err)
}

func (e *DBError) Is(target error) bool {
	return target == ErrDatabase
}

func (e *DBError) Unwrap() error {
	return e.Err
}

func isStoreError(err error) bool {
	for _, e := range storeErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func dbError(op string, err error) error {
	if err == nil || isStoreError(err) {
		return err
	}
	return &DBError{Op: op, Err: err}
}
