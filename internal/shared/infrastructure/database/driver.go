package database

import (
	"fmt"
	"strings"
)

// Driver names a storage backend.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"

	// DriverAuto picks the backend from the connection URL.
	DriverAuto Driver = "auto"
)

func (d Driver) String() string { return string(d) }

// IsValid reports whether d names a concrete backend.
func (d Driver) IsValid() bool {
	return d == DriverPostgres || d == DriverSQLite
}

// ParseDriver reads a configured driver name. Empty means auto.
func ParseDriver(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(s))); d {
	case "", DriverAuto:
		return DriverAuto, nil
	case "postgresql":
		return DriverPostgres, nil
	case DriverPostgres, DriverSQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %q", s)
	}
}

// DetectDriver infers the backend from a connection URL. No URL means local
// mode on SQLite; anything that is not recognisably SQLite, including
// key=value DSNs, is treated as PostgreSQL.
func DetectDriver(url string) Driver {
	url = strings.TrimSpace(url)
	if url == "" {
		return DriverSQLite
	}

	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DriverPostgres
	}
	for _, prefix := range []string{"sqlite://", "sqlite:", "file:"} {
		if strings.HasPrefix(lower, prefix) {
			return DriverSQLite
		}
	}
	for _, suffix := range []string{".db", ".sqlite", ".sqlite3"} {
		if strings.HasSuffix(lower, suffix) {
			return DriverSQLite
		}
	}
	return DriverPostgres
}
