package model

import "context"

// StreamResult is one chunk of a streamed generation. Final marks the last
// chunk, whose Message contains the assembled response.
type StreamResult struct {
	Message Message
	Final   bool
}

// StreamCallback receives incremental chunks during streaming generation.
// Returning an error aborts the stream.
type StreamCallback func(StreamResult) error

// Model is a single configured language model endpoint.
type Model interface {
	// Generate performs a blocking request and returns the full response.
	Generate(ctx context.Context, req Request) (Message, error)

	// GenerateStream relays incremental chunks into cb until the response
	// completes or ctx is cancelled.
	GenerateStream(ctx context.Context, req Request, cb StreamCallback) error
}
