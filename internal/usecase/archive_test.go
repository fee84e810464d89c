package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DigestFeed/internal/domain"
	"DigestFeed/internal/infrastructure/htmltext"
	"DigestFeed/internal/logging"
	"DigestFeed/internal/ports"
)

type memoryRepository struct {
	mu      sync.Mutex
	digests map[string]domain.DigestJSON
	saveErr error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{digests: map[string]domain.DigestJSON{}}
}

func (m *memoryRepository) Save(_ context.Context, d domain.DigestJSON) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.digests[d.Date] = d
	return nil
}

func (m *memoryRepository) Load(_ context.Context, date string) (domain.DigestJSON, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.digests[date]
	if !ok {
		return domain.DigestJSON{}, fmt.Errorf("load %s: %w", date, ports.ErrDigestNotFound)
	}
	return d, nil
}

func (m *memoryRepository) Dates(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dates := make([]string, 0, len(m.digests))
	for date := range m.digests {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (m *memoryRepository) Delete(_ context.Context, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.digests[date]; !ok {
		return fmt.Errorf("delete %s: %w", date, ports.ErrDigestNotFound)
	}
	delete(m.digests, date)
	return nil
}

const digestDoc = `{
  "date": "2026-03-01",
  "highlights": "Two picks today.",
  "stats": {"totalFeeds": 5, "successFeeds": 5, "totalArticles": 40, "filteredArticles": 8, "hours": 24, "lang": "zh", "selectedCount": 3},
  "articles": [
    {"title": "Model serving", "link": "https://a.example/1", "category": "ai-ml", "score": 0.9,
     "scoreBreakdown": {"relevance": 0.5, "quality": 0.3, "timeliness": 0.1},
     "description": "<p>Serving <b>models</b> at scale.</p>", "keywords": ["llm"]},
    {"title": "Robot arms", "link": "https://a.example/2", "category": "robotics", "score": 0.7,
     "scoreBreakdown": {"relevance": 0.3, "quality": 0.3, "timeliness": 0.1}, "summary": "Arms.", "keywords": []},
    {"title": "Patch Tuesday", "link": "https://a.example/3", "category": "security", "score": 0.5,
     "scoreBreakdown": {"relevance": 0.2, "quality": 0.2, "timeliness": 0.1}, "summary": "Patches.", "keywords": []}
  ]
}`

func newTestArchive(repo ports.DigestRepository, policy domain.CategoryPolicy) (*Archive, *bytes.Buffer) {
	var logs bytes.Buffer
	return NewArchive(ArchiveDeps{
		Repository:    repo,
		Snippets:      htmltext.Extractor{},
		Policy:        policy,
		SnippetLength: 80,
		Logger:        logging.NewWithWriter(&logs, "debug"),
	}), &logs
}

func TestImportFallbackPolicy(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository()
	archive, logs := newTestArchive(repo, domain.PolicyFallback)

	d, err := archive.Import(context.Background(), strings.NewReader(digestDoc))
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryOther, d.Articles[1].Category)

	stored, err := repo.Load(context.Background(), "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, d, stored)
	assert.Contains(t, logs.String(), "unknown category")
	assert.Contains(t, logs.String(), "digest imported")
}

func TestImportRejectPolicy(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository()
	archive, _ := newTestArchive(repo, domain.PolicyReject)

	_, err := archive.Import(context.Background(), strings.NewReader(digestDoc))
	require.Error(t, err)

	var checkErr *domain.CheckError
	require.True(t, errors.As(err, &checkErr))
	assert.Equal(t, "articles[1].category", checkErr.Violations[0].Field)

	dates, err := repo.Dates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestImportRejectsBrokenCounters(t *testing.T) {
	t.Parallel()

	archive, _ := newTestArchive(newMemoryRepository(), domain.PolicyFallback)
	doc := strings.Replace(digestDoc, `"selectedCount": 3`, `"selectedCount": 9`, 1)

	_, err := archive.Import(context.Background(), strings.NewReader(doc))
	var checkErr *domain.CheckError
	require.True(t, errors.As(err, &checkErr))
}

func TestImportPropagatesSaveError(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository()
	repo.saveErr = errors.New("disk full")
	archive, _ := newTestArchive(repo, domain.PolicyFallback)

	_, err := archive.Import(context.Background(), strings.NewReader(digestDoc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestImportWithoutRepository(t *testing.T) {
	t.Parallel()

	archive := NewArchive(ArchiveDeps{})
	_, err := archive.Import(context.Background(), strings.NewReader(digestDoc))
	assert.Error(t, err)
}

func TestCheckDoesNotStore(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository()
	archive, _ := newTestArchive(repo, domain.PolicyFallback)

	d, err := archive.Check(strings.NewReader(digestDoc))
	require.NoError(t, err)
	assert.Len(t, d.Articles, 3)

	dates, err := repo.Dates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestEmptyDigestImports(t *testing.T) {
	t.Parallel()

	archive, _ := newTestArchive(newMemoryRepository(), domain.PolicyReject)
	doc := `{"date":"2026-03-02","highlights":"","stats":{"selectedCount":0},"articles":[]}`

	d, err := archive.Import(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Empty(t, d.Articles)
}

func TestExportRoundTrip(t *testing.T) {
	t.Parallel()

	archive, _ := newTestArchive(newMemoryRepository(), domain.PolicyFallback)
	ctx := context.Background()

	imported, err := archive.Import(ctx, strings.NewReader(digestDoc))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, archive.Export(ctx, "2026-03-01", &buf))

	again, err := domain.DecodeDigest(&buf)
	require.NoError(t, err)
	assert.Equal(t, imported, again)
}

func TestExportMissingDate(t *testing.T) {
	t.Parallel()

	archive, _ := newTestArchive(newMemoryRepository(), domain.PolicyFallback)
	err := archive.Export(context.Background(), "2020-01-01", &bytes.Buffer{})
	assert.True(t, errors.Is(err, ports.ErrDigestNotFound))
}

func TestRemoveAndDates(t *testing.T) {
	t.Parallel()

	archive, _ := newTestArchive(newMemoryRepository(), domain.PolicyFallback)
	ctx := context.Background()

	_, err := archive.Import(ctx, strings.NewReader(digestDoc))
	require.NoError(t, err)
	_, err = archive.Import(ctx, strings.NewReader(strings.Replace(digestDoc, "2026-03-01", "2026-03-03", 1)))
	require.NoError(t, err)

	dates, err := archive.Dates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-03", "2026-03-01"}, dates)

	require.NoError(t, archive.Remove(ctx, "2026-03-01"))
	assert.True(t, errors.Is(archive.Remove(ctx, "2026-03-01"), ports.ErrDigestNotFound))
}

func TestOverviewGroupsByCategory(t *testing.T) {
	t.Parallel()

	archive, _ := newTestArchive(newMemoryRepository(), domain.PolicyFallback)
	ctx := context.Background()

	_, err := archive.Import(ctx, strings.NewReader(digestDoc))
	require.NoError(t, err)

	ov, err := archive.Overview(ctx, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, "Two picks today.", ov.Highlights)
	assert.Equal(t, 3, ov.Stats.SelectedCount)

	require.Len(t, ov.Buckets, 3)
	assert.Equal(t, domain.CategoryAIML, ov.Buckets[0].Category)
	assert.Equal(t, domain.CategorySecurity, ov.Buckets[1].Category)
	assert.Equal(t, domain.CategoryOther, ov.Buckets[2].Category)
	assert.Equal(t, domain.CategoryMeta{Emoji: "🔒", Label: "安全"}, ov.Buckets[1].Meta)
	assert.Equal(t, domain.CategoryMeta{Emoji: "📝", Label: "其他"}, ov.Buckets[2].Meta)

	first := ov.Buckets[0].Items[0]
	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, "Serving models at scale.", first.Snippet)

	assert.Equal(t, 3, ov.Buckets[1].Items[0].Rank)
	assert.Equal(t, "Patches.", ov.Buckets[1].Items[0].Snippet)
}

func TestOverviewTreatsUnknownCategoryAsOther(t *testing.T) {
	t.Parallel()

	archive := NewArchive(ArchiveDeps{})
	ov := archive.buildOverview(domain.DigestJSON{
		Date: "2026-03-01",
		Articles: []domain.DigestArticle{
			{Title: "stale", Category: "robotics", Description: "raw"},
		},
	})

	require.Len(t, ov.Buckets, 1)
	assert.Equal(t, domain.CategoryOther, ov.Buckets[0].Category)
	assert.Equal(t, "raw", ov.Buckets[0].Items[0].Snippet)
}
