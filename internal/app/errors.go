package app

import "errors"

var (
	// ErrOrderFetch wraps a failure of the order list fetch, the one failure
	// that aborts a dashboard load.
	ErrOrderFetch = errors.New("failed to fetch orders")

	// ErrUnauthenticated is returned when an operation needs a session and has none.
	ErrUnauthenticated = errors.New("not signed in")

	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid request")
)
