// Package journal records accepted webhook deliveries in a local SQLite
// database so operators can inspect what the pool was asked to do.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mattjoyce/runnerpool/internal/log"
	"github.com/mattjoyce/runnerpool/internal/webhook"
)

// timeLayout is fixed width so received_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DefaultLimit is the number of entries Recent returns when limit <= 0.
const DefaultLimit = 20

var ErrClosed = errors.New("journal is closed")

// Entry is one recorded delivery.
type Entry struct {
	ID         string
	DeliveryID string
	Action     string
	JobID      int64
	RunID      int64
	Status     string
	Repository string
	Labels     []string
	ReceivedAt time.Time
}

// Journal is a SQLite-backed webhook.EventHandler.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (and creates if needed) the journal at path and ensures the
// schema exists.
func Open(ctx context.Context, path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is empty")
	}
	if err := requireLocalFilesystem(path, filesystemType); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps pragmas and writes serialized.
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := bootstrap(pctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Journal{db: db, logger: log.WithComponent("journal")}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS deliveries (
  id          TEXT PRIMARY KEY,
  delivery_id TEXT NOT NULL UNIQUE,
  action      TEXT NOT NULL,
  job_id      INTEGER NOT NULL,
  run_id      INTEGER NOT NULL,
  status      TEXT,
  repository  TEXT NOT NULL,
  labels      TEXT NOT NULL DEFAULT '[]',
  received_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS deliveries_received_at_idx ON deliveries(received_at);`,
		`CREATE INDEX IF NOT EXISTS deliveries_action_idx ON deliveries(action);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap journal: %w", err)
		}
	}
	return nil
}

// Close releases the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record stores d. A delivery id that was already recorded is ignored and
// reported as inserted=false.
func (j *Journal) Record(ctx context.Context, d webhook.Delivery) (inserted bool, err error) {
	if j == nil || j.db == nil {
		return false, ErrClosed
	}
	if d.Event == nil || d.Event.WorkflowJob == nil {
		return false, fmt.Errorf("record delivery %q: %w", d.ID, webhook.ErrInvalidPayload)
	}

	deliveryID := d.ID
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	receivedAt := d.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	job := d.Event.WorkflowJob
	labels, err := json.Marshal(job.Labels)
	if err != nil {
		return false, fmt.Errorf("encode labels: %w", err)
	}
	repo := ""
	if job.Repository != nil {
		repo = job.Repository.FullName
	}

	res, err := j.db.ExecContext(ctx, `
INSERT INTO deliveries(id, delivery_id, action, job_id, run_id, status, repository, labels, received_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(delivery_id) DO NOTHING;`,
		uuid.NewString(),
		deliveryID,
		d.Event.Action,
		job.ID,
		job.RunID,
		job.Status,
		repo,
		string(labels),
		receivedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("insert delivery: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert delivery: %w", err)
	}
	if n == 0 {
		j.logger.Debug("duplicate delivery ignored", "delivery_id", deliveryID)
	}
	return n > 0, nil
}

// HandleEvent implements webhook.EventHandler.
func (j *Journal) HandleEvent(ctx context.Context, d webhook.Delivery) error {
	_, err := j.Record(ctx, d)
	return err
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := j.db.QueryContext(ctx, `
SELECT id, delivery_id, action, job_id, run_id, COALESCE(status, ''), repository, labels, received_at
FROM deliveries
ORDER BY received_at DESC, rowid DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			labels     string
			receivedAt string
		)
		if err := rows.Scan(&e.ID, &e.DeliveryID, &e.Action, &e.JobID, &e.RunID, &e.Status, &e.Repository, &labels, &receivedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		if err := json.Unmarshal([]byte(labels), &e.Labels); err != nil {
			return nil, fmt.Errorf("decode labels for %s: %w", e.DeliveryID, err)
		}
		if e.ReceivedAt, err = time.Parse(timeLayout, receivedAt); err != nil {
			return nil, fmt.Errorf("parse received_at for %s: %w", e.DeliveryID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}

// Count returns the number of recorded deliveries.
func (j *Journal) Count(ctx context.Context) (int, error) {
	if j == nil || j.db == nil {
		return 0, ErrClosed
	}
	var n int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM deliveries;").Scan(&n); err != nil {
		return 0, fmt.Errorf("count deliveries: %w", err)
	}
	return n, nil
}
