package gateway

import (
	"fmt"

	"querypad/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// mysqlDSN constructs a MySQL DSN from a profile.
func mysqlDSN(p *domain.ConnectionProfile) string {
	port := p.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		p.User, p.Password, p.Host, port, p.Database,
	)
	if p.SSL {
		dsn += "&tls=true"
	}
	return dsn
}
