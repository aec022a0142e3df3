// Package store archives answered turns to PostgreSQL. It sits outside the
// question-answering core, which keeps no persistent state of its own.
package store

import (
	"context"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xhad/tradeqa/internal/models"
)

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type TranscriptStoreConfig struct {
	ConnString string
	TableName  string
	// ListLimit caps Recent when the caller passes zero.
	ListLimit int
}

type TranscriptStore struct {
	config TranscriptStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config TranscriptStoreConfig) (*TranscriptStore, error) {
	if config.TableName == "" {
		config.TableName = "transcripts"
	}
	if config.ListLimit == 0 {
		config.ListLimit = 20
	}
	if !tableName.MatchString(config.TableName) {
		return nil, fmt.Errorf("invalid table name %q", config.TableName)
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ts := &TranscriptStore{
		config: config,
		pool:   pool,
	}

	if err := ts.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return ts, nil
}

func (ts *TranscriptStore) initialize(ctx context.Context) error {
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			path TEXT NOT NULL,
			outcome TEXT NOT NULL,
			elapsed_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, ts.config.TableName)

	if _, err := ts.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_session_idx
		ON %s (session_id, created_at)`,
		ts.config.TableName, ts.config.TableName)

	if _, err := ts.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Record appends one answered turn.
func (ts *TranscriptStore) Record(ctx context.Context, t models.Transcript) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (session_id, question, answer, path, outcome, elapsed_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ts.config.TableName)

	_, err := ts.pool.Exec(ctx, stmt,
		t.SessionID,
		sanitizeUTF8(t.Question),
		sanitizeUTF8(t.Answer),
		t.Path,
		t.Outcome,
		t.Elapsed.Milliseconds(),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transcript: %w", err)
	}
	return nil
}

// Recent returns the latest turns of a session, oldest first.
func (ts *TranscriptStore) Recent(ctx context.Context, sessionID string, limit int) ([]models.Transcript, error) {
	if limit <= 0 {
		limit = ts.config.ListLimit
	}

	query := fmt.Sprintf(`
		SELECT session_id, question, answer, path, outcome, elapsed_ms, created_at
		FROM (
			SELECT * FROM %s
			WHERE session_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at, id`,
		ts.config.TableName)

	rows, err := ts.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Transcript, error) {
		var (
			t         models.Transcript
			elapsedMS int64
		)
		err := row.Scan(&t.SessionID, &t.Question, &t.Answer, &t.Path, &t.Outcome, &elapsedMS, &t.CreatedAt)
		t.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan transcripts: %w", err)
	}
	return out, nil
}

func (ts *TranscriptStore) Close() {
	if ts.pool != nil {
		ts.pool.Close()
	}
}

// sanitizeUTF8 drops invalid bytes, which PostgreSQL rejects in TEXT columns.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
