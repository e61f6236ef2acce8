package state

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransactionState is returned when an operation is not allowed
	// in the transaction's current status.
	ErrInvalidTransactionState = errors.New("invalid transaction state")
	// ErrInvalidChangelogOffset is returned by Flush when the supplied changelog
	// offset is lower than the one already stored for the partition.
	ErrInvalidChangelogOffset = errors.New("cannot set changelog offset lower than already saved one")
	// ErrNotFound is returned by Partition.Get for absent keys.
	ErrNotFound = errors.New("key not found")
)

// SerializationError reports a key or value the codec could not convert.
type SerializationError struct {
	// What is "key", "value" or "prefix".
	What string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to serialize %s: %v", e.What, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// DeserializationError reports stored bytes the codec could not decode.
type DeserializationError struct {
	Err error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("failed to deserialize value: %v", e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }
