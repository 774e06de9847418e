package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"zwavenet/internal/domain"
	"zwavenet/internal/repository"

	_ "modernc.org/sqlite"
)

// DefaultHistory is the number of snapshots kept after pruning
const DefaultHistory = 10

// Repository implements repository.Repository using SQLite
type Repository struct {
	db      *sql.DB
	history int
}

var _ repository.Repository = (*Repository)(nil)

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is its own database
	if isMemory(dbPath) {
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db, history: DefaultHistory}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

// SetHistory changes how many snapshots are kept; values below 1 keep one
func (r *Repository) SetHistory(n int) {
	if n < 1 {
		n = 1
	}
	r.history = n
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func dsn(path string) string {
	if isMemory(path) {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		cycle_id TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		hub_id INTEGER NOT NULL,
		ha_version TEXT,
		node_count INTEGER NOT NULL,
		edge_count INTEGER NOT NULL,
		unreachable INTEGER NOT NULL DEFAULT 0,
		data JSON NOT NULL,
		generated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payloads (
		key TEXT PRIMARY KEY,
		data JSON NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_generated ON snapshots(generated_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// SaveSnapshot stores a snapshot and prunes the history
func (r *Repository) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	args, err := snapshotInsertArgs(snap)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (`+snapshotInsertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cycle_id) DO UPDATE SET
			domain = excluded.domain,
			hub_id = excluded.hub_id,
			ha_version = excluded.ha_version,
			node_count = excluded.node_count,
			edge_count = excluded.edge_count,
			unreachable = excluded.unreachable,
			data = excluded.data,
			generated_at = excluded.generated_at
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM snapshots WHERE cycle_id NOT IN (
			SELECT cycle_id FROM snapshots ORDER BY generated_at DESC, rowid DESC LIMIT ?
		)
	`, r.history)
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}

	return tx.Commit()
}

// LatestSnapshot returns the most recently generated snapshot
func (r *Repository) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `
		SELECT data FROM snapshots ORDER BY generated_at DESC, rowid DESC LIMIT 1
	`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	return decodeSnapshot(data)
}

// ListSnapshots returns summaries of stored snapshots, newest first
func (r *Repository) ListSnapshots(ctx context.Context, limit int) ([]repository.SnapshotSummary, error) {
	if limit <= 0 {
		limit = r.history
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+summaryColumns+`
		FROM snapshots ORDER BY generated_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	summaries := make([]repository.SnapshotSummary, 0)
	for rows.Next() {
		var row summaryRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		summaries = append(summaries, row.toSummary())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return summaries, nil
}

// SavePayload stores a raw payload under key, replacing any previous one
func (r *Repository) SavePayload(ctx context.Context, key string, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payloads (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, key, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save payload %s: %w", key, err)
	}
	return nil
}

// LoadPayload returns the payload stored under key
func (r *Repository) LoadPayload(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM payloads WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payload %s: %w", key, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payload %s: %w", key, err)
	}
	return []byte(data), nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
