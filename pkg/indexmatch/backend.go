package indexmatch

import (
	"context"
	"errors"
)

// ErrNotLoaded is returned by a backend searched before any documents were loaded
var ErrNotLoaded = errors.New("search index has not been loaded")

// Backend is a typo-tolerant search service holding registry documents
type Backend interface {
	// Load replaces the indexed documents
	Load(ctx context.Context, docs []Document) error
	// Search returns documents of the given state ordered by relevance
	Search(ctx context.Context, query, state string, limit int) ([]Document, error)
}
