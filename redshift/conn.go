// Package redshift loads curated rows into a warehouse table. Rows are
// staged as an Avro file in object storage and loaded with COPY over a
// PostgreSQL wire connection.
package redshift

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// DefaultPort is the port clusters listen on unless configured otherwise.
const DefaultPort = 5439

// ConnConfig identifies a warehouse database and the user to connect as.
type ConnConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// HostFor returns the host name used for database when no host is given.
func HostFor(database string) string {
	return database + ".redshift.amazonaws.com"
}

// JDBCURL returns the JDBC style URL for c. It never includes the password,
// so it is safe to log.
func (c ConnConfig) JDBCURL() string {
	return fmt.Sprintf("jdbc:redshift://%s:%d/%s", c.Host, c.Port, c.Database)
}

// String implements fmt.Stringer without the password.
func (c ConnConfig) String() string {
	return fmt.Sprintf("%s (user %s)", c.JDBCURL(), c.User)
}

// Execer runs a statement. *pgx.Conn implements it.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Conn is an Execer which must be closed.
type Conn interface {
	Execer
	Close(ctx context.Context) error
}

// pgxConfig returns the pgx configuration for c. The password is set on the
// parsed config rather than written into the connection string.
func (c ConnConfig) pgxConfig() (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(fmt.Sprintf("host=%s port=%d dbname=%s user=%s sslmode=require",
		quoteConnValue(c.Host), c.Port, quoteConnValue(c.Database), quoteConnValue(c.User)))
	if err != nil {
		return nil, errors.Wrap(err, "parsing connection config")
	}
	cfg.Password = c.Password
	// The cluster's wire protocol support doesn't extend to pgx's statement
	// cache.
	cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	return cfg, nil
}

// ConnectFunc opens a connection. Connect is the real one.
type ConnectFunc func(ctx context.Context, c ConnConfig) (Conn, error)

// Connect opens a connection to the warehouse described by c.
func Connect(ctx context.Context, c ConnConfig) (Conn, error) {
	cfg, err := c.pgxConfig()
	if err != nil {
		return nil, err
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", c)
	}
	return conn, nil
}

func quoteConnValue(v string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}
