// Package db opens the credential store for the configured dialect.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/camvault/internal/dbx"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// sqliteParams puts the file in WAL mode for concurrent readers, waits on a
// held lock instead of failing fast, and begins every transaction IMMEDIATE
// so a read-then-write sequence holds the write lock from its first read.
// key is what marks the parameter as already present in a caller's DSN.
var sqliteParams = []struct{ key, param string }{
	{"journal_mode", "_pragma=journal_mode(WAL)"},
	{"busy_timeout", "_pragma=busy_timeout(5000)"},
	{"foreign_keys", "_pragma=foreign_keys(1)"},
	{"_txlock", "_txlock=immediate"},
}

// Open connects to dsn with the dialect's driver and pings it.
func Open(ctx context.Context, dialect dbx.Dialect, dsn string) (*sql.DB, error) {
	if dialect == dbx.DialectSQLite {
		dsn = SQLiteDSN(dsn)
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return db, nil
}

// SQLiteDSN appends the store's connection parameters to a SQLite path,
// keeping any the caller already set.
func SQLiteDSN(dsn string) string {
	var add []string
	for _, p := range sqliteParams {
		if !strings.Contains(dsn, p.key) {
			add = append(add, p.param)
		}
	}
	if len(add) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(add, "&")
}
