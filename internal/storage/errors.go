package storage

import "errors"

var (
	// ErrBackendUnavailable marks a single failed or timed-out backend call.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrTimeout is wrapped together with ErrBackendUnavailable when a call
	// exceeded its budget.
	ErrTimeout = errors.New("storage operation timed out")

	// ErrStorageUnavailable is returned by Put when no backend accepted the write.
	ErrStorageUnavailable = errors.New("both primary and replica storage are unavailable")

	// ErrNoReplica is returned by replica-only administrative operations.
	ErrNoReplica = errors.New("no replica store configured")

	ErrNilPrimary = errors.New("primary store is required")
)
