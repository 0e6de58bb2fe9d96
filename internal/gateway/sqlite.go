package gateway

import (
	"querypad/internal/domain"

	_ "modernc.org/sqlite"
)

// sqliteDSN builds a DSN for an external SQLite file. The profile's
// host field carries the file path.
func sqliteDSN(p *domain.ConnectionProfile) string {
	return p.Host + "?_journal_mode=WAL&_busy_timeout=5000"
}
