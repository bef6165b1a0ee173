package api

import "errors"

var (
	// ErrConnectorRequired is returned when a generator is built without a
	// connector.
	ErrConnectorRequired = errors.New("connector is required")

	// ErrUnsupportedPagination is returned for a pagination type this
	// package does not implement.
	ErrUnsupportedPagination = errors.New("unsupported pagination type")

	// ErrQueryRequired is returned when a GraphQL connector is built
	// without a query.
	ErrQueryRequired = errors.New("graphql query is required")
)
