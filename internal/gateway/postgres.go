package gateway

import (
	"fmt"

	"querypad/internal/domain"

	_ "github.com/lib/pq"
)

// postgresDSN constructs a Postgres connection string from a profile.
func postgresDSN(p *domain.ConnectionProfile) string {
	port := p.Port
	if port == 0 {
		port = 5432
	}
	sslMode := "disable"
	if p.SSL {
		sslMode = "require"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, port, p.User, p.Password, p.Database, sslMode,
	)
}
