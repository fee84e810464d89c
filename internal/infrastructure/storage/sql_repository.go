package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"DigestFeed/internal/domain"
	"DigestFeed/internal/ports"
)

const (
	digestsTable  = "digests"
	articlesTable = "digest_articles"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS digests (
		date              TEXT PRIMARY KEY,
		highlights        TEXT NOT NULL DEFAULT '',
		total_feeds       INTEGER NOT NULL DEFAULT 0,
		success_feeds     INTEGER NOT NULL DEFAULT 0,
		total_articles    INTEGER NOT NULL DEFAULT 0,
		filtered_articles INTEGER NOT NULL DEFAULT 0,
		hours             INTEGER NOT NULL DEFAULT 0,
		lang              TEXT NOT NULL DEFAULT '',
		selected_count    INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS digest_articles (
		digest_date  TEXT NOT NULL REFERENCES digests(date),
		position     INTEGER NOT NULL,
		title        TEXT NOT NULL,
		link         TEXT NOT NULL,
		pub_date     TEXT NOT NULL,
		description  TEXT NOT NULL,
		source_name  TEXT NOT NULL,
		source_url   TEXT NOT NULL,
		score        REAL NOT NULL,
		relevance    REAL NOT NULL,
		quality      REAL NOT NULL,
		timeliness   REAL NOT NULL,
		category     TEXT NOT NULL,
		keywords     TEXT NOT NULL,
		title_zh     TEXT NOT NULL,
		summary      TEXT NOT NULL,
		reason       TEXT NOT NULL,
		PRIMARY KEY (digest_date, position)
	)`,
}

var articleColumns = []string{
	"title", "link", "pub_date", "description", "source_name", "source_url",
	"score", "relevance", "quality", "timeliness", "category", "keywords",
	"title_zh", "summary", "reason",
}

// OpenSQLite opens a SQLite database and applies the digest schema.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serialises writers anyway; one connection keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return db, nil
}

// SQLRepository persists digests into two tables keyed by date.
type SQLRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ ports.DigestRepository = (*SQLRepository)(nil)

// NewSQLRepository wires a sql.DB that already carries the digest schema.
func NewSQLRepository(db *sql.DB, logger *slog.Logger) *SQLRepository {
	return &SQLRepository{db: db, logger: logger}
}

// Save replaces the digest stored for d.Date inside one transaction.
func (r *SQLRepository) Save(ctx context.Context, d domain.DigestJSON) error {
	if d.Date == "" {
		return fmt.Errorf("invalid digest date %q", d.Date)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := exec(ctx, tx, sq.Delete(articlesTable).Where(sq.Eq{"digest_date": d.Date})); err != nil {
		return fmt.Errorf("clear articles %s: %w", d.Date, err)
	}
	if err := exec(ctx, tx, sq.Delete(digestsTable).Where(sq.Eq{"date": d.Date})); err != nil {
		return fmt.Errorf("clear digest %s: %w", d.Date, err)
	}

	s := d.Stats
	insertDigest := sq.Insert(digestsTable).
		Columns("date", "highlights", "total_feeds", "success_feeds", "total_articles",
			"filtered_articles", "hours", "lang", "selected_count").
		Values(d.Date, d.Highlights, s.TotalFeeds, s.SuccessFeeds, s.TotalArticles,
			s.FilteredArticles, s.Hours, s.Lang, s.SelectedCount)
	if err := exec(ctx, tx, insertDigest); err != nil {
		return fmt.Errorf("insert digest %s: %w", d.Date, err)
	}

	if len(d.Articles) > 0 {
		insertArticles := sq.Insert(articlesTable).
			Columns(append([]string{"digest_date", "position"}, articleColumns...)...)
		for i, a := range d.Articles {
			if a.Keywords == nil {
				a.Keywords = []string{}
			}
			keywords, err := json.Marshal(a.Keywords)
			if err != nil {
				return fmt.Errorf("encode keywords %s[%d]: %w", d.Date, i, err)
			}
			insertArticles = insertArticles.Values(
				d.Date, i, a.Title, a.Link, a.PubDate, a.Description, a.SourceName, a.SourceURL,
				a.Score, a.ScoreBreakdown.Relevance, a.ScoreBreakdown.Quality, a.ScoreBreakdown.Timeliness,
				string(a.Category), string(keywords), a.TitleZh, a.Summary, a.Reason,
			)
		}
		if err := exec(ctx, tx, insertArticles); err != nil {
			return fmt.Errorf("insert articles %s: %w", d.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit digest %s: %w", d.Date, err)
	}

	r.debug("digest saved", "date", d.Date, "articles", len(d.Articles))
	return nil
}

// Load reads the digest and its articles in stored order.
func (r *SQLRepository) Load(ctx context.Context, date string) (domain.DigestJSON, error) {
	query, args, err := sq.Select("date", "highlights", "total_feeds", "success_feeds",
		"total_articles", "filtered_articles", "hours", "lang", "selected_count").
		From(digestsTable).
		Where(sq.Eq{"date": date}).
		ToSql()
	if err != nil {
		return domain.DigestJSON{}, fmt.Errorf("build digest query: %w", err)
	}

	var d domain.DigestJSON
	s := &d.Stats
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&d.Date, &d.Highlights, &s.TotalFeeds,
		&s.SuccessFeeds, &s.TotalArticles, &s.FilteredArticles, &s.Hours, &s.Lang, &s.SelectedCount)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DigestJSON{}, fmt.Errorf("load %s: %w", date, ports.ErrDigestNotFound)
	}
	if err != nil {
		return domain.DigestJSON{}, fmt.Errorf("query digest %s: %w", date, err)
	}

	articles, err := r.loadArticles(ctx, date)
	if err != nil {
		return domain.DigestJSON{}, err
	}
	d.Articles = articles
	return d, nil
}

func (r *SQLRepository) loadArticles(ctx context.Context, date string) ([]domain.DigestArticle, error) {
	query, args, err := sq.Select(articleColumns...).
		From(articlesTable).
		Where(sq.Eq{"digest_date": date}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles %s: %w", date, err)
	}

	articles := make([]domain.DigestArticle, 0)
	for rows.Next() {
		var (
			a        domain.DigestArticle
			category string
			keywords string
		)
		if err := rows.Scan(&a.Title, &a.Link, &a.PubDate, &a.Description, &a.SourceName, &a.SourceURL,
			&a.Score, &a.ScoreBreakdown.Relevance, &a.ScoreBreakdown.Quality, &a.ScoreBreakdown.Timeliness,
			&category, &keywords, &a.TitleZh, &a.Summary, &a.Reason); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.Category = domain.CategoryID(category)
		if err := json.Unmarshal([]byte(keywords), &a.Keywords); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode keywords: %w", err)
		}
		if a.Keywords == nil {
			a.Keywords = []string{}
		}
		articles = append(articles, a)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}
	return articles, nil
}

// Dates lists stored digest dates, newest first.
func (r *SQLRepository) Dates(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("date").From(digestsTable).OrderBy("date DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build dates query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dates: %w", err)
	}

	dates := make([]string, 0)
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, date)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}
	return dates, nil
}

// Delete removes the digest and its articles.
func (r *SQLRepository) Delete(ctx context.Context, date string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := exec(ctx, tx, sq.Delete(articlesTable).Where(sq.Eq{"digest_date": date})); err != nil {
		return fmt.Errorf("delete articles %s: %w", date, err)
	}

	query, args, err := sq.Delete(digestsTable).Where(sq.Eq{"date": date}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete digest %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete digest %s: %w", date, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", date, ports.ErrDigestNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete %s: %w", date, err)
	}

	r.debug("digest deleted", "date", date)
	return nil
}

func exec(ctx context.Context, tx *sql.Tx, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (r *SQLRepository) debug(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
