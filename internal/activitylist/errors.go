package activitylist

import (
	"errors"
	"fmt"
)

var (
	ErrNotAttached     = errors.New("activity list is not attached")
	ErrNotLoaded       = errors.New("activity list has not loaded yet")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownActivity = errors.New("activity not in current list")

	ErrCreateFailed  = errors.New("create failed")
	ErrUpdateFailed  = errors.New("update failed")
	ErrDeleteFailed  = errors.New("delete failed")
	ErrReorderFailed = errors.New("reorder failed")
	ErrMoveFailed    = errors.New("move failed")
)

type Op string

const (
	OpAdd     Op = "add"
	OpUpdate  Op = "update"
	OpRemove  Op = "remove"
	OpReorder Op = "reorder"
	OpMove    Op = "move"
)

// ValidationError rejects user input before anything is sent to the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RemoteWriteError wraps a failed backend write. It matches the Err*Failed
// sentinel of its operation under errors.Is.
type RemoteWriteError struct {
	Op  Op
	Err error
	// RolledBack is set when the optimistic local change was undone.
	RolledBack bool
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteWriteError) Unwrap() error {
	return e.Err
}

func (e *RemoteWriteError) Is(target error) bool {
	switch e.Op {
	case OpAdd:
		return target == ErrCreateFailed
	case OpUpdate:
		return target == ErrUpdateFailed
	case OpRemove:
		return target == ErrDeleteFailed
	case OpReorder:
		return target == ErrReorderFailed
	case OpMove:
		return target == ErrMoveFailed
	}
	return false
}

// SubscriptionError reports a failed live query. The list keeps its last
// good contents.
type SubscriptionError struct {
	Key Key
	Err error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription %s: %v", e.Key, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}
