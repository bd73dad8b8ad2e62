package handler

import (
	"context"
)

// Worker is the platform-agnostic business logic contract.
// Workers never see the transport; adapters feed them Requests and write
// their Responses.
type Worker interface {
	// Name identifies the worker in logs, metrics and health output.
	Name() string

	// Process unmarshals the payload, does the work and returns a Response.
	// Expected failures belong in an error Response; a non-nil error means the
	// request could not be processed at all.
	Process(ctx context.Context, request Request) (Response, error)

	// Health reports whether the worker's dependencies are reachable.
	Health(ctx context.Context) error
}
