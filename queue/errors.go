package queue

import "errors"

var (
	// ErrBusClosed indicates an operation on a closed bus.
	ErrBusClosed = errors.New("bus is closed")

	// ErrMalformedJob indicates a message that could not be decoded into a job.
	ErrMalformedJob = errors.New("malformed job message")
)
