package tryon

import "context"

// ContentGenerator is the seam to the hosted generative model.
// Implement this interface to add support for new providers.
type ContentGenerator interface {
	// GenerateContent sends one request and returns the raw reply.
	// Service failures should be reported as *APIError.
	GenerateContent(ctx context.Context, req *Request) (*Response, error)

	// Models returns the model definitions supported by this provider.
	Models() []ModelInfo

	// Close releases any resources held by the generator.
	Close() error
}
