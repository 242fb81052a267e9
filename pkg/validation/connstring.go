package validation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/ekaya-inc/ekaya-console/pkg/apperrors"
)

// Dialect is the database family a connection string targets.
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectSQLServer Dialect = "sqlserver"
)

// ConnectionString checks that s is a URL the backend can connect with. It
// only parses; no connection is opened. Parse errors are not wrapped because
// they can echo credentials.
func ConnectionString(s string) (Dialect, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: connection string is required", apperrors.ErrInvalidInput)
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return "", fmt.Errorf("%w: expected a URL such as postgresql://host/db", apperrors.ErrInvalidConnectionString)
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		if _, err := pgx.ParseConfig(s); err != nil {
			return "", fmt.Errorf("%w: postgres connection string could not be parsed", apperrors.ErrInvalidConnectionString)
		}
		return DialectPostgres, nil

	case "sqlserver":
		cfg, err := msdsn.Parse(s)
		if err != nil {
			return "", fmt.Errorf("%w: sqlserver connection string could not be parsed", apperrors.ErrInvalidConnectionString)
		}
		if cfg.Host == "" {
			return "", fmt.Errorf("%w: sqlserver connection string has no host", apperrors.ErrInvalidConnectionString)
		}
		return DialectSQLServer, nil
	}

	return "", fmt.Errorf("%w: unsupported scheme %q", apperrors.ErrInvalidConnectionString, u.Scheme)
}
