package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"xpulse/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	generated_at TEXT NOT NULL,
	period_from  TEXT NOT NULL,
	period_to    TEXT NOT NULL,
	keywords     INTEGER NOT NULL,
	posts        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	run_id     INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	keyword    TEXT NOT NULL,
	post_id    TEXT NOT NULL,
	text       TEXT NOT NULL,
	author     TEXT NOT NULL,
	handle     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	sentiment  TEXT NOT NULL,
	score      REAL NOT NULL,
	likes      INTEGER NOT NULL,
	retweets   INTEGER NOT NULL,
	replies    INTEGER NOT NULL,
	url        TEXT NOT NULL,
	PRIMARY KEY (run_id, keyword, post_id)
);

CREATE INDEX IF NOT EXISTS idx_posts_keyword ON posts(keyword);
`

// Store archives completed runs in a local SQLite database so past harvests
// stay queryable after the JSON report is overwritten.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	// The sqlite driver does not support concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Archive inserts a full run transactionally. Either the run row and every
// post row land together, or nothing does.
func (s *Store) Archive(ctx context.Context, report *models.Report) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	totalPosts := 0
	for _, kw := range report.Keywords {
		totalPosts += len(kw.Posts)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (generated_at, period_from, period_to, keywords, posts) VALUES (?, ?, ?, ?, ?)`,
		report.GeneratedAt.Format(time.RFC3339),
		report.Period.From,
		report.Period.To,
		len(report.Keywords),
		totalPosts,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO posts (run_id, keyword, post_id, text, author, handle, created_at, sentiment, score, likes, retweets, replies, url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare post insert: %w", err)
	}
	defer stmt.Close()

	for _, kw := range report.Keywords {
		for _, post := range kw.Posts {
			if _, err := stmt.ExecContext(ctx,
				runID, kw.Keyword, post.ID, post.Text, post.Author, post.Handle,
				post.CreatedAt.Format(time.RFC3339), post.Sentiment, post.Score,
				post.Likes, post.Retweets, post.Replies, post.URL,
			); err != nil {
				return 0, fmt.Errorf("failed to insert post %s: %w", post.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit archive: %w", err)
	}
	return runID, nil
}

// RunSummary is one archived run's header row.
type RunSummary struct {
	ID          int64
	GeneratedAt time.Time
	From        string
	To          string
	Keywords    int
	Posts       int
}

// Runs lists archived runs, newest first, up to limit.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, generated_at, period_from, period_to, keywords, posts
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var generated string
		if err := rows.Scan(&r.ID, &generated, &r.From, &r.To, &r.Keywords, &r.Posts); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.GeneratedAt, _ = time.Parse(time.RFC3339, generated)
		out = append(out, r)
	}
	return out, rows.Err()
}
