package ports

import (
	"context"
	"errors"

	"DigestFeed/internal/domain"
)

// ErrDigestNotFound is returned when no digest is stored for a date.
var ErrDigestNotFound = errors.New("digest not found")

// DigestRepository persists digest documents, one per date.
type DigestRepository interface {
	// Save stores d under d.Date, replacing any digest already stored for that date.
	Save(ctx context.Context, d domain.DigestJSON) error
	Load(ctx context.Context, date string) (domain.DigestJSON, error)
	// Dates lists stored digest dates, newest first.
	Dates(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, date string) error
}

// SnippetExtractor turns feed-provided markup into short plain text.
type SnippetExtractor interface {
	Snippet(markup string, maxRunes int) string
}
