package gateway

import (
	"context"
	"database/sql"
	"time"

	"querypad/internal/domain"
)

const (
	connectTimeout = 10 * time.Second
	queryTimeout   = 30 * time.Second
)

// execSQL runs one statement over a fresh database/sql handle.
// The handle is closed on every exit path — success, connection
// failure, query failure, or an error during row materialization.
func execSQL(ctx context.Context, driverName, dsn, queryText string) (*domain.QueryResult, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, &ConnectError{Err: err}
	}
	defer db.Close()
	// One statement, one connection
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, &ConnectError{Err: err}
	}

	queryCtx, cancelQuery := context.WithTimeout(ctx, queryTimeout)
	defer cancelQuery()

	rows, err := db.QueryContext(queryCtx, queryText)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Err: err}
	}

	result := &domain.QueryResult{Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryError{Err: err}
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = formatValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Err: err}
	}
	return result, nil
}

// testSQL opens a connection, pings it, and closes it.
func testSQL(ctx context.Context, driverName, dsn string) error {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return &ConnectError{Err: err}
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return &ConnectError{Err: err}
	}
	return nil
}

// formatValue converts a database value to a JSON-friendly one.
func formatValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}
