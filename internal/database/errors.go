package database

import "errors"

var (
	// ErrNotFound означает, что документ отсутствует в хранилище.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyResponded is returned when a quote left the pending
	// state before this transition was applied.
	ErrAlreadyResponded = errors.New("quote already responded")

	// ErrConcurrentModification is returned when a version check fails.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)
