package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"DigestFeed/internal/domain"
	"DigestFeed/internal/ports"
)

const digestExt = ".json"

// FileRepository keeps each digest as <dir>/<date>.json.
type FileRepository struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

var _ ports.DigestRepository = (*FileRepository)(nil)

// NewFileRepository creates dir if needed.
func NewFileRepository(dir string, logger *slog.Logger) (*FileRepository, error) {
	if dir == "" {
		return nil, fmt.Errorf("file repository: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create digest dir: %w", err)
	}
	return &FileRepository{dir: dir, logger: logger}, nil
}

// Save writes the digest through a temp file so readers never see a partial document.
func (r *FileRepository) Save(ctx context.Context, d domain.DigestJSON) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := r.pathFor(d.Date)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := domain.EncodeDigest(&buf, d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp, err := os.CreateTemp(r.dir, ".digest-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write digest %s: %w", d.Date, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close digest %s: %w", d.Date, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store digest %s: %w", d.Date, err)
	}

	r.debug("digest saved", "date", d.Date, "articles", len(d.Articles), "path", path)
	return nil
}

// Load reads the digest stored for date.
func (r *FileRepository) Load(ctx context.Context, date string) (domain.DigestJSON, error) {
	if err := ctx.Err(); err != nil {
		return domain.DigestJSON{}, err
	}
	path, err := r.pathFor(date)
	if err != nil {
		return domain.DigestJSON{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DigestJSON{}, fmt.Errorf("load %s: %w", date, ports.ErrDigestNotFound)
		}
		return domain.DigestJSON{}, fmt.Errorf("open digest %s: %w", date, err)
	}
	defer f.Close()

	return domain.DecodeDigest(f)
}

// Dates lists stored digests, newest first. Files not named after a date are skipped.
func (r *FileRepository) Dates(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read digest dir: %w", err)
	}

	dates := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != digestExt {
			continue
		}
		date := strings.TrimSuffix(name, digestExt)
		if _, err := time.Parse(domain.DateLayout, date); err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// Delete removes the digest stored for date.
func (r *FileRepository) Delete(ctx context.Context, date string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := r.pathFor(date)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", date, ports.ErrDigestNotFound)
		}
		return fmt.Errorf("delete digest %s: %w", date, err)
	}
	r.debug("digest deleted", "date", date)
	return nil
}

func (r *FileRepository) pathFor(date string) (string, error) {
	if date == "" || date != filepath.Base(date) || strings.HasPrefix(date, ".") {
		return "", fmt.Errorf("invalid digest date %q", date)
	}
	return filepath.Join(r.dir, date+digestExt), nil
}

func (r *FileRepository) debug(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
