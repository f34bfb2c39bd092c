package raffle

import (
	"database/sql"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// The ledger writes one row per settled win, so a handful of connections is plenty.
const (
	ledgerMaxOpen     = 5
	ledgerMaxIdle     = 2
	ledgerIdleTimeout = 4 * time.Minute
)

var (
	dbOnce sync.Once
	dbConn *sql.DB
	dbErr  error
)

// GetDB opens the win ledger database at dsn (config DATABASE_URL) once per process.
// It returns a nil *sql.DB and nil error when dsn is empty. Later calls reuse the
// first connection pool whatever dsn they pass.
func GetDB(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, nil
	}
	dbOnce.Do(func() {
		dbConn, dbErr = openLedgerDB(dsn)
	})
	if dbErr != nil {
		return nil, dbErr
	}
	return dbConn, nil
}

func openLedgerDB(dsn string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	// Hosted poolers (PgBouncer/Supabase) reject server-side prepared statements.
	cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	db := stdlib.OpenDB(*cfg)
	db.SetConnMaxIdleTime(ledgerIdleTimeout)
	db.SetMaxOpenConns(ledgerMaxOpen)
	db.SetMaxIdleConns(ledgerMaxIdle)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
