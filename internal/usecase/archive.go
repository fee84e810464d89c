package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"DigestFeed/internal/domain"
	"DigestFeed/internal/ports"
)

// ArchiveDeps wires the driven adapters into the archive use case.
type ArchiveDeps struct {
	Repository    ports.DigestRepository
	Snippets      ports.SnippetExtractor
	Policy        domain.CategoryPolicy
	SnippetLength int
	Logger        *slog.Logger
}

// Archive imports, checks and serves dated digest documents.
type Archive struct {
	repository    ports.DigestRepository
	snippets      ports.SnippetExtractor
	policy        domain.CategoryPolicy
	snippetLength int
	logger        *slog.Logger
}

// NewArchive constructs the use case; an empty policy means fallback.
func NewArchive(deps ArchiveDeps) *Archive {
	policy := deps.Policy
	if policy == "" {
		policy = domain.PolicyFallback
	}
	return &Archive{
		repository:    deps.Repository,
		snippets:      deps.Snippets,
		policy:        policy,
		snippetLength: deps.SnippetLength,
		logger:        deps.Logger,
	}
}

// Decode reads one digest and applies the category policy.
func (a *Archive) Decode(r io.Reader) (domain.DigestJSON, error) {
	d, err := domain.DecodeDigest(r)
	if err != nil {
		return domain.DigestJSON{}, err
	}

	for _, i := range a.policy.Apply(&d) {
		a.warn("unknown category",
			"date", d.Date,
			"index", i,
			"title", d.Articles[i].Title,
			"policy", string(a.policy))
	}
	return d, nil
}

// Check decodes r and verifies it without storing anything.
func (a *Archive) Check(r io.Reader) (domain.DigestJSON, error) {
	d, err := a.Decode(r)
	if err != nil {
		return domain.DigestJSON{}, err
	}
	if err := domain.Check(d); err != nil {
		return d, err
	}
	return d, nil
}

// Import decodes, verifies and stores a digest, replacing any digest of the same date.
func (a *Archive) Import(ctx context.Context, r io.Reader) (domain.DigestJSON, error) {
	if a.repository == nil {
		return domain.DigestJSON{}, fmt.Errorf("digest repository is not configured")
	}

	d, err := a.Check(r)
	if err != nil {
		return domain.DigestJSON{}, err
	}

	if err := a.repository.Save(ctx, d); err != nil {
		return domain.DigestJSON{}, fmt.Errorf("save digest %s: %w", d.Date, err)
	}

	a.info("digest imported", "date", d.Date, "articles", len(d.Articles))
	return d, nil
}

// Load returns the digest stored for date.
func (a *Archive) Load(ctx context.Context, date string) (domain.DigestJSON, error) {
	if a.repository == nil {
		return domain.DigestJSON{}, fmt.Errorf("digest repository is not configured")
	}
	return a.repository.Load(ctx, date)
}

// Export writes the stored digest for date to w in wire format.
func (a *Archive) Export(ctx context.Context, date string, w io.Writer) error {
	d, err := a.Load(ctx, date)
	if err != nil {
		return err
	}
	return domain.EncodeDigest(w, d)
}

// Dates lists archived digests, newest first.
func (a *Archive) Dates(ctx context.Context) ([]string, error) {
	if a.repository == nil {
		return nil, fmt.Errorf("digest repository is not configured")
	}
	return a.repository.Dates(ctx)
}

// Remove deletes the digest stored for date.
func (a *Archive) Remove(ctx context.Context, date string) error {
	if a.repository == nil {
		return fmt.Errorf("digest repository is not configured")
	}
	if err := a.repository.Delete(ctx, date); err != nil {
		return err
	}
	a.info("digest removed", "date", date)
	return nil
}

func (a *Archive) info(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Info(msg, args...)
	}
}

func (a *Archive) warn(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}
