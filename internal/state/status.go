package state

import "fmt"

// TransactionStatus is the lifecycle state of a PartitionTransaction.
type TransactionStatus int

const (
	// StatusStarted accepts reads and updates.
	StatusStarted TransactionStatus = iota + 1
	// StatusPrepared no longer accepts updates and can only be flushed.
	StatusPrepared
	// StatusComplete is terminal; the transaction cannot be used anymore.
	StatusComplete
	// StatusFailed is terminal; the transaction cannot be used anymore.
	StatusFailed
)

func (s TransactionStatus) String() string {
	switch s {
	case StatusStarted:
		return "STARTED"
	case StatusPrepared:
		return "PREPARED"
	case StatusComplete:
		return "COMPLETE"
	case StatusFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("TransactionStatus(%d)", int(s))
	}
}

// Terminal reports whether no transition can leave s.
func (s TransactionStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

func checkStatus(op string, current TransactionStatus, allowed ...TransactionStatus) error {
	for _, a := range allowed {
		if current == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s not allowed in status %s, allowed: %v", ErrInvalidTransactionState, op, current, allowed)
}
