package services

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreRead matches every *StoreReadError.
	ErrStoreRead = errors.New("store read failed")
	// ErrTransferLeg rejects plain transaction writes that would touch a
	// transfer leg. Legs only change through Transfers.
	ErrTransferLeg = errors.New("transaction is a transfer leg")
)

// StoreReadError reports a failed snapshot read. No aggregate is produced
// when it is returned.
type StoreReadError struct {
	Table string
	Err   error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Table, e.Err)
}

func (e *StoreReadError) Unwrap() error { return e.Err }

func (e *StoreReadError) Is(target error) bool { return target == ErrStoreRead }
