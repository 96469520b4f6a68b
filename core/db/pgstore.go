package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fbz-tec/pgxstream/core/config"
	"github.com/fbz-tec/pgxstream/core/errs"
	"github.com/fbz-tec/pgxstream/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	connectTimeout = 10 * time.Second
	closeTimeout   = 2 * time.Second
	cursorName     = "pgxstream_cursor"
)

// PgSource streams PostgreSQL query results through a server-side cursor.
type PgSource struct {
	cfg  config.SourceConfig
	conn *pgx.Conn
}

// NewPgSource creates a new PostgreSQL source for cfg.
func NewPgSource(cfg config.SourceConfig) *PgSource {
	return &PgSource{cfg: cfg}
}

// Connect establishes a connection to the PostgreSQL database.
// Returns an error if the connection fails or if ping fails.
func (s *PgSource) Connect(ctx context.Context) error {
	if s.conn != nil {
		return nil // already connected
	}

	connCfg, err := pgx.ParseConfig(buildDSN(s.cfg.ConnectionString))
	if err != nil {
		return errs.Wrap(errs.Connection, errs.PhaseConnect, fmt.Errorf("invalid connection string: %w", err))
	}
	if s.cfg.Username != "" {
		connCfg.User = s.cfg.Username
	}
	if s.cfg.Password != "" {
		connCfg.Password = s.cfg.Password
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	logger.Debug("Connection timeout: %v", connectTimeout)
	logger.Debug("Attempting to connect to database: %s", describeTarget(connCfg))

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return errs.Wrap(errs.Connection, errs.PhaseConnect, fmt.Errorf("unable to connect to database: %w", err))
	}

	logger.Debug("Connection established, verifying connectivity (ping)...")

	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return errs.Wrap(errs.Connection, errs.PhaseConnect, fmt.Errorf("unable to ping database: %w", err))
	}

	logger.Debug("Database ping successful")
	s.conn = conn
	return nil
}

// Close closes the database connection.
func (s *PgSource) Close() error {
	if s.conn == nil {
		return nil
	}
	logger.Debug("Closing database connection...")

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	err := s.conn.Close(ctx)
	s.conn = nil
	if err != nil {
		logger.Debug("Error closing database connection: %v", err)
	} else {
		logger.Debug("Database connection closed successfully")
	}
	return err
}

// DiscoverColumns describes query through an unnamed prepared statement.
// No row is fetched.
func (s *PgSource) DiscoverColumns(ctx context.Context, query string) (ColumnSet, error) {
	if s.conn == nil {
		return nil, errs.Wrap(errs.Query, errs.PhaseQuery, ErrNotConnected)
	}

	sd, err := s.conn.PgConn().Prepare(ctx, "", trimQuery(query), nil)
	if err != nil {
		return nil, errs.Wrap(errs.Query, errs.PhaseQuery, fmt.Errorf("unable to describe query: %w", err))
	}
	columns := columnNames(sd.Fields)
	logger.Debug("Discovered %d columns: %s", len(columns), strings.Join(columns, ", "))
	return columns, nil
}

// StreamQuery declares a cursor for query inside a read-only transaction
// and fetches it FetchSize rows at a time. Values travel in text form.
func (s *PgSource) StreamQuery(ctx context.Context, query string, onRow func(Row) error) (ColumnSet, error) {
	if s.conn == nil {
		return nil, errs.Wrap(errs.Query, errs.PhaseQuery, ErrNotConnected)
	}

	fetchSize := s.cfg.FetchSize
	if fetchSize < 1 {
		fetchSize = config.DefaultFetchSize
	}

	logger.Debug("Executing SQL query (fetch size %d)...", fetchSize)
	logger.Debug("Query: %s", query)

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, errs.Wrap(errs.Query, errs.PhaseQuery, fmt.Errorf("unable to begin transaction: %w", err))
	}
	defer tx.Rollback(context.Background())

	declare := fmt.Sprintf("DECLARE %s NO SCROLL CURSOR FOR %s", cursorName, trimQuery(query))
	if _, err := tx.Exec(ctx, declare); err != nil {
		return nil, errs.Wrap(errs.Query, errs.PhaseQuery, fmt.Errorf("query execution failed: %w", err))
	}

	fetch := fmt.Sprintf("FETCH FORWARD %d FROM %s", fetchSize, cursorName)
	startTime := time.Now()

	var (
		columns ColumnSet
		total   int64
		batches int
	)
	for {
		cols, n, err := s.fetchBatch(ctx, fetch, onRow)
		if err != nil {
			return columns, err
		}
		if columns == nil {
			columns = cols
		}
		batches++
		total += int64(n)
		if n < fetchSize {
			break
		}
	}

	if _, err := tx.Exec(ctx, "CLOSE "+cursorName); err != nil {
		return columns, errs.Wrap(errs.Query, errs.PhaseQuery, fmt.Errorf("unable to close cursor: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return columns, errs.Wrap(errs.Query, errs.PhaseQuery, err)
	}

	logger.Debug("Fetched %d rows in %d batches (%v)", total, batches, time.Since(startTime))
	return columns, nil
}

// fetchBatch runs one FETCH and hands its rows to onRow. An onRow error is
// returned unchanged.
func (s *PgSource) fetchBatch(ctx context.Context, fetch string, onRow func(Row) error) (ColumnSet, int, error) {
	mrr := s.conn.PgConn().Exec(ctx, fetch)
	defer mrr.Close()

	var (
		columns ColumnSet
		n       int
		row     Row
	)
	for mrr.NextResult() {
		rr := mrr.ResultReader()
		columns = columnNames(rr.FieldDescriptions())
		if row == nil {
			row = make(Row, len(columns))
		}
		for rr.NextRow() {
			for i, v := range rr.Values() {
				// nil is NULL
				row[i] = string(v)
			}
			n++
			if err := onRow(row); err != nil {
				rr.Close()
				return columns, n, err
			}
		}
		if _, err := rr.Close(); err != nil {
			return columns, n, errs.Wrap(errs.Query, errs.PhaseQuery, fmt.Errorf("fetch failed: %w", err))
		}
	}
	if err := mrr.Close(); err != nil {
		return columns, n, errs.Wrap(errs.Query, errs.PhaseQuery, fmt.Errorf("fetch failed: %w", err))
	}
	return columns, n, nil
}

func columnNames(fields []pgconn.FieldDescription) ColumnSet {
	columns := make(ColumnSet, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}
	return columns
}

// buildDSN accepts a postgres URL, a keyword/value DSN, or the short
// host:port/dbname form.
func buildDSN(descriptor string) string {
	descriptor = strings.TrimSpace(descriptor)
	switch {
	case strings.HasPrefix(descriptor, "postgres://"), strings.HasPrefix(descriptor, "postgresql://"):
		return descriptor
	case strings.Contains(descriptor, "="):
		return descriptor
	case descriptor == "":
		return ""
	default:
		return "postgres://" + descriptor
	}
}

// trimQuery drops trailing semicolons so the query can be embedded in a
// cursor declaration.
func trimQuery(query string) string {
	return strings.TrimRight(strings.TrimSpace(query), "; \t\r\n")
}

// describeTarget renders the connection target with the password masked.
func describeTarget(cfg *pgx.ConnConfig) string {
	userInfo := cfg.User
	if cfg.Password != "" {
		userInfo += ":***"
	}
	return fmt.Sprintf("postgres://%s@%s:%d/%s", userInfo, cfg.Host, cfg.Port, cfg.Database)
}
