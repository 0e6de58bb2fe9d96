package gateway

import (
	"context"
	"fmt"

	"querypad/internal/domain"
)

// ConnectError signals a failure to establish the query connection
// (unreachable host, bad credentials, TLS failure).
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string { return "connect: " + e.Err.Error() }
func (e *ConnectError) Unwrap() error { return e.Err }

// QueryError signals a failure during statement execution on an
// otherwise-live connection.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return "query: " + e.Err.Error() }
func (e *QueryError) Unwrap() error { return e.Err }

// Gateway executes exactly one statement against exactly one data
// source connection per call. The connection is opened for the call
// and released unconditionally before the call returns — it is never
// pooled or shared across queries.
type Gateway struct{}

// New creates a Gateway.
func New() *Gateway {
	return &Gateway{}
}

// Execute opens a connection for the given profile, runs queryText
// verbatim as a single statement, and returns the normalized result.
// No client-side parsing or validation is performed; syntax and
// semantic errors are whatever the engine reports.
func (g *Gateway) Execute(ctx context.Context, p *domain.ConnectionProfile, queryText string) (*domain.QueryResult, error) {
	switch p.Driver {
	case domain.DriverPostgres, "":
		return execSQL(ctx, "postgres", postgresDSN(p), queryText)
	case domain.DriverMySQL:
		return execSQL(ctx, "mysql", mysqlDSN(p), queryText)
	case domain.DriverSQLite:
		return execSQL(ctx, "sqlite", sqliteDSN(p), queryText)
	case domain.DriverMongoDB:
		return execMongo(ctx, p, queryText)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", p.Driver)
	}
}

// Test verifies that a connection can be established with the
// profile's parameters. Same scoped lifecycle as Execute.
func (g *Gateway) Test(ctx context.Context, p *domain.ConnectionProfile) error {
	switch p.Driver {
	case domain.DriverPostgres, "":
		return testSQL(ctx, "postgres", postgresDSN(p))
	case domain.DriverMySQL:
		return testSQL(ctx, "mysql", mysqlDSN(p))
	case domain.DriverSQLite:
		return testSQL(ctx, "sqlite", sqliteDSN(p))
	case domain.DriverMongoDB:
		return testMongo(ctx, p)
	default:
		return fmt.Errorf("unsupported driver: %s", p.Driver)
	}
}
