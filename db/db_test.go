package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"githubtray/models"
)

// setupTestDB creates a new test database connection with a mock
func setupTestDB(t *testing.T) (*DB, sqlmock.Sqlmock, func()) {
	return setupTestDBWithDriver(t, "sqlmock")
}

func setupTestDBWithDriver(t *testing.T, driver string) (*DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, driver)
	database := &DB{conn: sqlxDB}
	database.stmtCache.statements = make(map[string]*sqlx.Stmt)

	cleanup := func() {
		database.Close()
		db.Close()
	}

	return database, mock, cleanup
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(context.Background(), DriverSQLite, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New(context.Background(), "mysql", "somewhere")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMigrate(t *testing.T) {
	tests := []struct {
		name        string
		driver      string
		mockSetup   func(sqlmock.Sqlmock)
		expectedErr error
	}{
		{
			name:   "sqlite schema",
			driver: "sqlmock",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS notifications \\(\\s+id INTEGER PRIMARY KEY AUTOINCREMENT").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS workflow_transitions").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_notifications_delivered_at").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name:   "postgres schema",
			driver: DriverPostgres,
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("id BIGSERIAL PRIMARY KEY").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS workflow_transitions").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_notifications_delivered_at").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name:   "statement failure",
			driver: "sqlmock",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS notifications").
					WillReturnError(errors.New("disk full"))
			},
			expectedErr: ErrMigrationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDBWithDriver(t, tt.driver)
			defer cleanup()

			tt.mockSetup(mock)

			err := db.Migrate(context.Background())
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRecordNotification(t *testing.T) {
	deliveredAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		n           models.DeliveredNotification
		mockSetup   func(sqlmock.Sqlmock)
		expectedErr error
	}{
		{
			name: "successful insert",
			n: models.DeliveredNotification{
				Lane:        "repositories",
				Title:       "New Stars!",
				Body:        "app +3 ⭐",
				DeliveredAt: deliveredAt,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare("INSERT INTO notifications").
					ExpectExec().
					WithArgs("repositories", "New Stars!", "app +3 ⭐", deliveredAt.Unix()).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
		},
		{
			name:        "missing title",
			n:           models.DeliveredNotification{Lane: "repositories"},
			mockSetup:   func(mock sqlmock.Sqlmock) {},
			expectedErr: ErrInvalidInput,
		},
		{
			name: "exec failure",
			n: models.DeliveredNotification{
				Lane:        "workflows",
				Title:       "GitHub Actions: Workflow Failed",
				DeliveredAt: deliveredAt,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare("INSERT INTO notifications").
					ExpectExec().
					WillReturnError(sql.ErrConnDone)
			},
			expectedErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()

			tt.mockSetup(mock)

			err := db.RecordNotification(context.Background(), tt.n)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestClaimTransition(t *testing.T) {
	tests := []struct {
		name        string
		runID       int64
		kind        string
		mockSetup   func(sqlmock.Sqlmock)
		expected    bool
		expectedErr error
	}{
		{
			name:  "first claim wins",
			runID: 42,
			kind:  "failed",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare("INSERT INTO workflow_transitions").
					ExpectExec().
					WithArgs(int64(42), 1, "failed", "octo/app", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			expected: true,
		},
		{
			name:  "duplicate claim is ignored",
			runID: 42,
			kind:  "failed",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare("ON CONFLICT \\(run_id, attempt, kind\\) DO NOTHING").
					ExpectExec().
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expected: false,
		},
		{
			name:        "missing run id",
			kind:        "failed",
			mockSetup:   func(mock sqlmock.Sqlmock) {},
			expectedErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()

			tt.mockSetup(mock)

			claimed, err := db.ClaimTransition(context.Background(), tt.runID, 1, tt.kind, "octo/app")
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, claimed)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestClaimTransitionPostgresPlaceholders(t *testing.T) {
	db, mock, cleanup := setupTestDBWithDriver(t, DriverPostgres)
	defer cleanup()

	mock.ExpectPrepare("VALUES \\(\\$1, \\$2, \\$3, \\$4, \\$5\\)").
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := db.ClaimTransition(context.Background(), 7, 2, "started", "octo/app")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementCacheReuse(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	prep := mock.ExpectPrepare("INSERT INTO workflow_transitions")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := db.ClaimTransition(context.Background(), 1, 1, "succeeded", "octo/app")
	require.NoError(t, err)
	second, err := db.ClaimTransition(context.Background(), 1, 1, "succeeded", "octo/app")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentNotifications(t *testing.T) {
	newer := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	older := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		limit       int
		mockSetup   func(sqlmock.Sqlmock)
		expected    []models.DeliveredNotification
		expectedErr error
	}{
		{
			name:  "newest first",
			limit: 2,
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "lane", "title", "body", "delivered_at"}).
					AddRow(2, "workflows", "GitHub Actions: Workflow Failed", "app • CI\nmain", newer.Unix()).
					AddRow(1, "repositories", "New Stars!", "app +1 ⭐", older.Unix())
				mock.ExpectQuery("SELECT id, lane, title, body, delivered_at").
					WithArgs(2).
					WillReturnRows(rows)
			},
			expected: []models.DeliveredNotification{
				{ID: 2, Lane: "workflows", Title: "GitHub Actions: Workflow Failed", Body: "app • CI\nmain", DeliveredAt: newer},
				{ID: 1, Lane: "repositories", Title: "New Stars!", Body: "app +1 ⭐", DeliveredAt: older},
			},
		},
		{
			name:  "empty history",
			limit: 10,
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, lane").
					WithArgs(10).
					WillReturnRows(sqlmock.NewRows([]string{"id", "lane", "title", "body", "delivered_at"}))
			},
			expected: []models.DeliveredNotification{},
		},
		{
			name:        "invalid limit",
			limit:       0,
			mockSetup:   func(mock sqlmock.Sqlmock) {},
			expectedErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()

			tt.mockSetup(mock)

			result, err := db.RecentNotifications(context.Background(), tt.limit)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetStats(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notifications").
		WillReturnRows(sqlmock.NewRows([]string{"notifications", "transitions"}).AddRow(12, 4))

	stats, err := db.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Stats{Notifications: 12, Transitions: 4}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrune(t *testing.T) {
	cutoff := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		mockSetup   func(sqlmock.Sqlmock)
		expected    int64
		expectedErr error
	}{
		{
			name: "removes from both tables",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM notifications WHERE delivered_at <").
					WithArgs(cutoff.Unix()).
					WillReturnResult(sqlmock.NewResult(0, 3))
				mock.ExpectExec("DELETE FROM workflow_transitions WHERE delivered_at <").
					WithArgs(cutoff.Unix()).
					WillReturnResult(sqlmock.NewResult(0, 2))
				mock.ExpectCommit()
			},
			expected: 5,
		},
		{
			name: "transaction failure",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(sql.ErrConnDone)
			},
			expectedErr: ErrTransactionFailed,
		},
		{
			name: "delete failure rolls back",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM notifications").
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			expectedErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()

			tt.mockSetup(mock)

			removed, err := db.Prune(context.Background(), cutoff)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, removed)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRunRetention(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	clk := testingclock.NewFakeClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	expectPrune := func() {
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM notifications").
			WithArgs(sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM workflow_transitions").
			WithArgs(sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
	}
	expectPrune()
	expectPrune()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db.RunRetention(ctx, clk, time.Hour, 24*time.Hour)

	// the first pass runs immediately, the second on the next tick
	assert.Eventually(t, clk.HasWaiters, time.Second, 5*time.Millisecond)
	clk.Step(time.Hour)
	assert.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, time.Second, 5*time.Millisecond)
}

func TestRunRetentionDisabled(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	clk := testingclock.NewFakeClock(time.Now())
	db.RunRetention(context.Background(), clk, time.Hour, 0)

	assert.False(t, clk.HasWaiters())
	assert.NoError(t, mock.ExpectationsWereMet())
}
