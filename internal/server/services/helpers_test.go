package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/camvault/internal/dbx"
	"github.com/dmitrijs2005/camvault/internal/logging"
	"github.com/dmitrijs2005/camvault/internal/server/models"
	"github.com/dmitrijs2005/camvault/internal/server/repositories/repomanager"
	storedb "github.com/dmitrijs2005/camvault/internal/server/shared/db"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAdminName     = "camadmin"
	testAdminPassword = "adminpass1"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// newSQLiteStore opens a migrated SQLite file store in a temp dir.
func newSQLiteStore(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	ctx := context.Background()

	conn, err := storedb.Open(ctx, dbx.DialectSQLite, filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	m, err := repomanager.NewRepositoryManager(dbx.DialectSQLite)
	require.NoError(t, err)
	require.NoError(t, m.RunMigrations(ctx, conn))

	return conn, m
}

func newTestUserService(t *testing.T, maxUsers int) (*UserService, *sql.DB, repomanager.RepositoryManager) {
	t.Helper()

	conn, m := newSQLiteStore(t)
	s, err := NewUserService(conn, m, AuthPolicy{
		MaxUsers:   maxUsers,
		AdminName:  testAdminName,
		BcryptCost: bcrypt.MinCost,
	}, logging.NewNop())
	require.NoError(t, err)

	return s, conn, m
}

// loginAs logs in and resolves the new token to an identity.
func loginAs(t *testing.T, s *UserService, name, password string) (*models.Identity, string) {
	t.Helper()
	ctx := context.Background()

	sess, err := s.Login(ctx, name, password)
	require.NoError(t, err)
	id, err := s.Authenticate(ctx, sess.Token)
	require.NoError(t, err)

	return id, sess.Token
}
