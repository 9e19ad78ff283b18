package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"githubtray/models"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lane TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		delivered_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS workflow_transitions (
		run_id BIGINT NOT NULL,
		attempt INTEGER NOT NULL,
		kind TEXT NOT NULL,
		repo TEXT NOT NULL,
		delivered_at BIGINT NOT NULL,
		PRIMARY KEY (run_id, attempt, kind)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_delivered_at ON notifications (delivered_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		lane TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		delivered_at BIGINT NOT NULL
	)`,
	sqliteSchema[1],
	sqliteSchema[2],
}

// Migrate creates the ledger tables when missing.
func (db *DB) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if db.conn.DriverName() == DriverPostgres {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
		}
	}
	return nil
}

// RecordNotification appends a delivered notification to the history.
func (db *DB) RecordNotification(ctx context.Context, n models.DeliveredNotification) error {
	if n.Lane == "" || n.Title == "" {
		return fmt.Errorf("%w: lane and title cannot be empty", ErrInvalidInput)
	}
	if n.DeliveredAt.IsZero() {
		n.DeliveredAt = time.Now()
	}

	stmt, err := db.getStmt(ctx, `
		INSERT INTO notifications (lane, title, body, delivered_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, n.Lane, n.Title, n.Body, n.DeliveredAt.Unix()); err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

// ClaimTransition stores a workflow transition and reports whether this was
// the first claim for (runID, attempt, kind).
func (db *DB) ClaimTransition(ctx context.Context, runID int64, attempt int, kind, repo string) (bool, error) {
	if runID == 0 || kind == "" {
		return false, fmt.Errorf("%w: run id and kind are required", ErrInvalidInput)
	}

	stmt, err := db.getStmt(ctx, `
		INSERT INTO workflow_transitions (run_id, attempt, kind, repo, delivered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_id, attempt, kind) DO NOTHING
	`)
	if err != nil {
		return false, err
	}
	res, err := stmt.ExecContext(ctx, runID, attempt, kind, repo, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("failed to claim transition for run %d: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim transition for run %d: %w", runID, err)
	}
	return n == 1, nil
}

// RecentNotifications returns the newest deliveries first.
func (db *DB) RecentNotifications(ctx context.Context, limit int) ([]models.DeliveredNotification, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}

	query := db.conn.Rebind(`
		SELECT id, lane, title, body, delivered_at
		FROM notifications
		ORDER BY delivered_at DESC, id DESC
		LIMIT ?
	`)
	var rows []notificationRow
	if err := db.conn.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	out := make([]models.DeliveredNotification, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// GetStats counts the rows of both ledger tables.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	query := `
		SELECT
			(SELECT COUNT(*) FROM notifications) AS notifications,
			(SELECT COUNT(*) FROM workflow_transitions) AS transitions
	`
	if err := db.conn.GetContext(ctx, stats, query); err != nil {
		return nil, fmt.Errorf("failed to get ledger statistics: %w", err)
	}
	return stats, nil
}

// Prune deletes every row delivered before cutoff and returns how many
// rows went away.
func (db *DB) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	var removed int64
	for _, table := range []string{"notifications", "workflow_transitions"} {
		query := tx.Rebind(fmt.Sprintf("DELETE FROM %s WHERE delivered_at < ?", table))
		res, err := tx.ExecContext(ctx, query, cutoff.Unix())
		if err != nil {
			return 0, fmt.Errorf("failed to prune %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: failed to commit transaction: %v", ErrTransactionFailed, err)
	}

	if removed > 0 {
		safeLogInfo("Pruned delivery history", zap.Int64("rows", removed), zap.Time("cutoff", cutoff))
	}
	return removed, nil
}
