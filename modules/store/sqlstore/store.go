package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/earmeout/earmeout/internal/conversation"

	_ "github.com/lib/pq"   // PostgreSQL driver registration
	_ "modernc.org/sqlite" // SQLite driver registration
)

// Store is a conversation.Store backed by database/sql. Timestamps are
// TIMESTAMPTZ on PostgreSQL and Unix milliseconds on SQLite, both at
// millisecond precision.
type Store struct {
	db      *sql.DB
	dialect dialect

	now   func() time.Time
	newID func() string
}

var (
	_ conversation.Store  = (*Store)(nil)
	_ conversation.Pruner = (*Store)(nil)
)

// Open connects to the database named by cfg.DSN, applies pragmas for
// SQLite and migrates the schema. dataDir resolves a bare "sqlite:" DSN.
// The caller closes the store.
func Open(ctx context.Context, cfg Config, dataDir string) (*Store, error) {
	cfg.defaults()
	d, source := parseDSN(cfg.DSN)

	if d == dialectSQLite {
		if source == "" {
			source = filepath.Join(dataDir, defaultDBFile)
		}
		if !strings.HasPrefix(source, "file:") && source != ":memory:" {
			if dir := filepath.Dir(source); dir != "." {
				if err := os.MkdirAll(dir, 0o700); err != nil {
					return nil, fmt.Errorf("sqlstore: create directory %s: %w", dir, err)
				}
			}
		}
	}

	db, err := sql.Open(d.driverName(), source)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", d, err)
	}

	switch d {
	case dialectSQLite:
		// One writer at a time; a single connection keeps PRAGMAs applied.
		db.SetMaxOpenConns(1)

		if cfg.walEnabled() {
			if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("sqlstore: enable WAL: %w", err)
			}
		}
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlstore: set busy_timeout: %w", err)
		}
	case dialectPostgres:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", d, err)
	}

	if err := migrate(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:      db,
		dialect: d,
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// Dialect reports "sqlite" or "postgres".
func (s *Store) Dialect() string {
	return string(s.dialect)
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements conversation.Store.
func (s *Store) Get(ctx context.Context, id, owner string) (conversation.Record, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT history, created_at, updated_at
		FROM conversations
		WHERE id = ? AND user_id = ?`),
		id, owner,
	)

	rec := conversation.Record{ID: id, Owner: owner}
	if err := scanRecord(row, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return conversation.Record{}, conversation.ErrNotFound
		}
		return conversation.Record{}, fmt.Errorf("sqlstore: get %s: %w", id, err)
	}
	return rec, nil
}

// Create implements conversation.Store.
func (s *Store) Create(ctx context.Context, owner string) (conversation.Record, error) {
	now := s.now().UTC()
	rec := conversation.Record{
		ID:        s.newID(),
		Owner:     owner,
		History:   conversation.History{},
		CreatedAt: now.Truncate(time.Millisecond),
		UpdatedAt: now.Truncate(time.Millisecond),
	}

	if _, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO conversations (id, user_id, history, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`),
		rec.ID, owner, "[]", s.dialect.bindTime(now), s.dialect.bindTime(now),
	); err != nil {
		return conversation.Record{}, fmt.Errorf("sqlstore: create: %w", err)
	}
	return rec, nil
}

// Save implements conversation.Store. The upsert only touches a row owned
// by rec.Owner; a foreign row yields conversation.ErrNotFound.
func (s *Store) Save(ctx context.Context, rec conversation.Record) error {
	history := rec.History
	if history == nil {
		history = conversation.History{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("sqlstore: marshal history: %w", err)
	}

	now := s.now().UTC()
	created := rec.CreatedAt
	if created.IsZero() {
		created = now
	}

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO conversations (id, user_id, history, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET history = excluded.history, updated_at = excluded.updated_at
		WHERE conversations.user_id = excluded.user_id`),
		rec.ID, rec.Owner, string(data), s.dialect.bindTime(created), s.dialect.bindTime(now),
	)
	if err != nil {
		return fmt.Errorf("sqlstore: save %s: %w", rec.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: save %s: %w", rec.ID, err)
	}
	if n == 0 {
		return conversation.ErrNotFound
	}
	return nil
}

// List implements conversation.Store.
func (s *Store) List(ctx context.Context, owner string) ([]conversation.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT id, history, created_at, updated_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY updated_at DESC, id ASC`),
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]conversation.Record, 0)
	for rows.Next() {
		var (
			rec                conversation.Record
			data               []byte
			created, updatedAt timestamp
		)
		if err := rows.Scan(&rec.ID, &data, &created, &updatedAt); err != nil {
			return nil, fmt.Errorf("sqlstore: scan: %w", err)
		}
		if err := json.Unmarshal(data, &rec.History); err != nil {
			return nil, fmt.Errorf("sqlstore: decode history %s: %w", rec.ID, err)
		}
		if rec.History == nil {
			rec.History = conversation.History{}
		}
		rec.Owner = owner
		rec.CreatedAt = created.Time
		rec.UpdatedAt = updatedAt.Time
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: list: %w", err)
	}
	return out, nil
}

// Delete implements conversation.Store.
func (s *Store) Delete(ctx context.Context, id, owner string) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`DELETE FROM conversations WHERE id = ? AND user_id = ?`),
		id, owner,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: delete %s: %w", id, err)
	}
	if n == 0 {
		return conversation.ErrNotFound
	}
	return nil
}

// Prune implements conversation.Pruner.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`DELETE FROM conversations WHERE updated_at < ?`),
		s.dialect.bindTime(olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: prune: %w", err)
	}
	return int(n), nil
}

func scanRecord(row *sql.Row, rec *conversation.Record) error {
	var (
		data               []byte
		created, updatedAt timestamp
	)
	if err := row.Scan(&data, &created, &updatedAt); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &rec.History); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}
	if rec.History == nil {
		rec.History = conversation.History{}
	}
	rec.CreatedAt = created.Time
	rec.UpdatedAt = updatedAt.Time
	return nil
}
