package domain

import "time"

// Driver represents the type of database engine a profile points at.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite"
	DriverMongoDB  Driver = "mongodb"
)

// ConnectionProfile holds everything needed to reach one data source.
// The password is stored in the profile row; the UI surface receives it
// back with the list so it can hand the full profile to execute, but
// never displays it on reload.
type ConnectionProfile struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Driver    Driver    `json:"driver"`
	Host      string    `json:"host"`     // hostname or file path (sqlite)
	Port      int       `json:"port"`     // 0 for sqlite
	Database  string    `json:"database"` // db name, empty for sqlite
	User      string    `json:"user"`
	Password  string    `json:"password"`
	Color     string    `json:"color"` // display tag, optional
	SSL       bool      `json:"ssl"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProfileStore manages CRUD operations for connection profiles.
type ProfileStore interface {
	// Save inserts the profile, or updates the row matching profile.ID
	// when isEdit is true and an ID is present.
	Save(p *ConnectionProfile, isEdit bool) error

	// List returns all profiles ordered by name.
	List() ([]ConnectionProfile, error)

	// Delete removes the profile with the given id. Deleting an id that
	// does not exist is not an error.
	Delete(id int64) error
}

// QueryResult is the normalized outcome of one query execution.
// It is built fresh per invocation and never persisted.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"data"`
}
