package orchestrate

import "errors"

var (
	// ErrRepositoriesRequired is returned when no repositories are provided.
	ErrRepositoriesRequired = errors.New("repositories are required")

	// ErrBusRequired is returned when no job bus is provided.
	ErrBusRequired = errors.New("job bus is required")

	// ErrEnricherRequired is returned when no enricher is provided.
	ErrEnricherRequired = errors.New("enricher is required")
)
