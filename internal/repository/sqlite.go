package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"eco-assistant/internal/domain"
)

// SQLiteStore keeps tracked activities in a local SQLite file.
type SQLiteStore struct {
	db    *sql.DB
	newID func() string
}

// NewSQLite opens (creating if needed) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("repository: sqlite path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("repository: create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("repository: ping database: %w", err)
	}
	s := &SQLiteStore{db: db, newID: uuid.NewString}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS activities (
		activity_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		category TEXT NOT NULL,
		activity TEXT NOT NULL,
		amount REAL NOT NULL,
		co2_emissions REAL NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_activities_user ON activities(user_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("repository: create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListActivities returns every activity for the user, oldest first.
func (s *SQLiteStore) ListActivities(ctx context.Context, userID string) ([]domain.TrackedActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT activity_id, category, activity, amount, co2_emissions, created_at
		FROM activities WHERE user_id = ?
		ORDER BY created_at, activity_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: ListActivities query: %w", err)
	}
	defer rows.Close()

	var acts []domain.TrackedActivity
	for rows.Next() {
		var (
			a         domain.TrackedActivity
			category  string
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &category, &a.ActivityLabel, &a.Amount, &a.CO2Emission, &createdAt); err != nil {
			return nil, fmt.Errorf("repository: ListActivities scan: %w", err)
		}
		a.UserID = userID
		a.Category = domain.Category(category)
		a.Timestamp = time.UnixMilli(createdAt).UTC()
		acts = append(acts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: ListActivities rows: %w", err)
	}
	return acts, nil
}

// AddActivity persists a new activity and returns its id.
func (s *SQLiteStore) AddActivity(ctx context.Context, a domain.TrackedActivity) (string, error) {
	if strings.TrimSpace(a.UserID) == "" {
		return "", errors.New("repository: AddActivity: user id is required")
	}
	if a.ID == "" {
		a.ID = s.newID()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (activity_id, user_id, category, activity, amount, co2_emissions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, string(a.Category), a.ActivityLabel, a.Amount, a.CO2Emission, a.Timestamp.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("repository: AddActivity: %w", err)
	}
	return a.ID, nil
}
