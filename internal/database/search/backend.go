package search

import (
	"context"
)

// Backend is the slice of a search engine client the document manager needs. Request
// and response bodies are JSON; errors carry the engine's response text.
type Backend interface {
	Index(ctx context.Context, index, id string, body []byte) error
	Bulk(ctx context.Context, index string, body []byte) ([]byte, error)
	Search(ctx context.Context, index string, body []byte) ([]byte, error)
	Count(ctx context.Context, index string, body []byte) ([]byte, error)
	DeleteByQuery(ctx context.Context, index string, body []byte) error
	UpdateByQuery(ctx context.Context, index string, body []byte) error
}
