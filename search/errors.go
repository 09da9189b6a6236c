package search

import "errors"

var (
	// ErrGatewayRequired is returned when a retrieval gateway is not provided.
	ErrGatewayRequired = errors.New("retrieval gateway required")

	// ErrInvalidTemplate is returned when a prompt template does not render or
	// lacks the context or question variable.
	ErrInvalidTemplate = errors.New("prompt template must use context and question")
)
