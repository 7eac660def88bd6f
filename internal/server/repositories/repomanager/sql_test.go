package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/camvault/internal/dbx"
	"github.com/dmitrijs2005/camvault/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

func TestNewRepositoryManager(t *testing.T) {
	m, err := NewRepositoryManager(dbx.DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t, dbx.DialectSQLite, m.Dialect())

	_, err = NewRepositoryManager("mysql")
	require.Error(t, err)
}

func TestUsers_ReturnsRepository(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := &SQLRepositoryManager{dialect: dbx.DialectPostgres}
	var u users.Repository = m.Users(db)
	assert.NotNil(t, u)
}

func TestRunMigrations_DirPerDialect(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	for dialect, want := range map[dbx.Dialect]string{
		dbx.DialectSQLite:   "sqlite",
		dbx.DialectPostgres: "postgres",
	} {
		var gotDir string
		gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			gotDir = dir
			if len(opts) != 0 {
				return errors.New("unexpected opts")
			}
			return nil
		}

		m := &SQLRepositoryManager{dialect: dialect}
		require.NoError(t, m.RunMigrations(context.Background(), db))
		assert.Equal(t, want, gotDir)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := &SQLRepositoryManager{dialect: dbx.DialectSQLite}
	err := m.RunMigrations(context.Background(), db)
	require.EqualError(t, err, "boom")
}

func TestRunMigrations_SQLiteCreatesUsersTable(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	m := &SQLRepositoryManager{dialect: dbx.DialectSQLite}
	require.NoError(t, m.RunMigrations(context.Background(), db))
	// idempotent
	require.NoError(t, m.RunMigrations(context.Background(), db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Equal(t, 0, n)
}
