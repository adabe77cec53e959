package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/timeline/internal/scheduler"
	"github.com/aristath/timeline/internal/timeline"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// opTimeout bounds every store operation.
const opTimeout = 5 * time.Second

// ErrNotFound is returned when a task or schedule does not exist.
var ErrNotFound = errors.New("not found")

// Snapshot is a persisted successful schedule for one asset.
type Snapshot struct {
	ID           string
	AssetID      string
	Path         timeline.Path
	ProjectStart string
	ProjectEnd   string
	Duration     int
	CriticalPath []string
	Tasks        []timeline.TimelineTask
	Warnings     []string
	ComputedAt   time.Time
}

// Store defines the persistence interface for tasks, holidays, and computed schedules.
type Store interface {
	// Tasks keep their first-saved position, which is their input order.
	SaveTask(ctx context.Context, task *scheduler.Task) error
	SaveTasks(ctx context.Context, tasks []scheduler.Task) error
	GetTask(ctx context.Context, taskID string) (*scheduler.Task, error)
	ListTasks(ctx context.Context, assetID string) ([]scheduler.Task, error)
	ListAssets(ctx context.Context) ([]string, error)
	DeleteTask(ctx context.Context, taskID string) error

	// Holidays
	SaveHolidays(ctx context.Context, dates []string) error
	ListHolidays(ctx context.Context) ([]string, error)

	// Schedules
	SaveSchedule(ctx context.Context, assetID string, result *timeline.Result) (string, error)
	LatestSchedule(ctx context.Context, assetID string) (*Snapshot, error)

	// Lifecycle
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode and busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	return open(ctx, connStr)
}

// NewMemoryStore creates an in-memory SQLite store for testing.
// Each store gets its own named database; the shared cache lets the store's
// connections see the same data.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	connStr := fmt.Sprintf("file:mem-%s?mode=memory&cache=shared", uuid.NewString())
	return open(ctx, connStr)
}

func open(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection for the outer query, one for statements issued while
	// its rows are open.
	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
