package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"querypad/internal/domain"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotInitialized is returned by any store operation invoked
	// before Initialize has completed.
	ErrNotInitialized = errors.New("profile store not initialized")

	// ErrDuplicateName is returned when saving a profile whose name
	// collides with an existing one.
	ErrDuplicateName = errors.New("connection name already exists")
)

// ProfileStore manages connection profile records in SQLite.
// It owns its own lifecycle: the backing file is opened at most once
// per process via Initialize, and every other operation fails fast
// until that has happened.
type ProfileStore struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

// NewProfileStore creates a ProfileStore backed by the SQLite file at
// path. The file is not opened until Initialize is called.
func NewProfileStore(path string) *ProfileStore {
	return &ProfileStore{path: path}
}

// Initialize opens (or creates) the backing store and ensures the
// schema exists. Calling it again after a successful initialization
// is a no-op.
func (s *ProfileStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer — limit to a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS connections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		driver TEXT NOT NULL DEFAULT 'postgres',
		host TEXT NOT NULL,
		port INTEGER NOT NULL,
		database_name TEXT NOT NULL,
		user TEXT NOT NULL,
		password TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		ssl INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`); err != nil {
		db.Close()
		return fmt.Errorf("create connections table: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the backing store. Safe to call before Initialize.
func (s *ProfileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *ProfileStore) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

// Save inserts a new profile, or updates the row matching p.ID when
// isEdit is true and an ID is present. Timestamps are store-assigned;
// on insert the assigned id is written back to p.
func (s *ProfileStore) Save(p *domain.ConnectionProfile, isEdit bool) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	if p.Driver == "" {
		p.Driver = domain.DriverPostgres
	}

	now := time.Now().UTC()
	if isEdit && p.ID != 0 {
		p.UpdatedAt = now
		_, err := db.Exec(
			`UPDATE connections
			 SET name=?, driver=?, host=?, port=?, database_name=?, user=?, password=?, color=?, ssl=?, is_active=?, updated_at=?
			 WHERE id=?`,
			p.Name, p.Driver, p.Host, p.Port, p.Database, p.User, p.Password, p.Color, p.SSL, p.IsActive, p.UpdatedAt, p.ID,
		)
		if err != nil {
			return wrapConstraint("update connection", err)
		}
		return nil
	}

	p.IsActive = true
	p.CreatedAt = now
	p.UpdatedAt = now
	res, err := db.Exec(
		`INSERT INTO connections (name, driver, host, port, database_name, user, password, color, ssl, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Driver, p.Host, p.Port, p.Database, p.User, p.Password, p.Color, p.SSL, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return wrapConstraint("insert connection", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		p.ID = id
	}
	return nil
}

// List returns all profiles ordered by name. An empty store yields an
// empty slice, not an error.
func (s *ProfileStore) List() ([]domain.ConnectionProfile, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		`SELECT id, name, driver, host, port, database_name, user, password, color, ssl, is_active, created_at, updated_at
		 FROM connections ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	profiles := []domain.ConnectionProfile{}
	for rows.Next() {
		var p domain.ConnectionProfile
		if err := rows.Scan(&p.ID, &p.Name, &p.Driver, &p.Host, &p.Port, &p.Database, &p.User, &p.Password, &p.Color, &p.SSL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Delete removes the profile with the given id. Deleting an id that
// does not exist still succeeds.
func (s *ProfileStore) Delete(id int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.Exec(`DELETE FROM connections WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	return nil
}

// wrapConstraint maps a unique-name violation to ErrDuplicateName and
// wraps everything else.
func wrapConstraint(op string, err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed: connections.name") {
		return fmt.Errorf("%s: %w", op, ErrDuplicateName)
	}
	return fmt.Errorf("%s: %w", op, err)
}
