package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/camvault/internal/common"
	"github.com/dmitrijs2005/camvault/internal/dbx"
	"github.com/dmitrijs2005/camvault/internal/server/models"
)

// SQLRepository implements Repository for SQLite and PostgreSQL. Queries
// are written with '?' placeholders and rebound per dialect.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

const selectUser = `SELECT id, name, password_hash, token_hash, role FROM users`

func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (name, password_hash, token_hash, role)
		 VALUES (?, ?, ?, ?)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query),
		user.Name, user.PasswordHash, user.TokenHash, user.Role.String()).Scan(&user.ID)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrUserExists
		}
		return nil, dbError(err)
	}

	return user, nil
}

func (r *SQLRepository) GetByName(ctx context.Context, name string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE name = ?`, name)
}

func (r *SQLRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE token_hash = ?`, tokenHash)
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = ?`, id)
}

func (r *SQLRepository) SetToken(ctx context.Context, id int64, tokenHash *string) error {
	return r.execOne(ctx, `UPDATE users SET token_hash = ? WHERE id = ?`, tokenHash, id)
}

func (r *SQLRepository) SetRoleAndClearToken(ctx context.Context, id int64, role models.Role) error {
	return r.execOne(ctx, `UPDATE users SET role = ?, token_hash = NULL WHERE id = ?`, role.String(), id)
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = ?`, id)
}

func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, dbError(err)
	}
	return n, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]models.UserSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, role FROM users ORDER BY id`)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	var out []models.UserSummary
	for rows.Next() {
		var (
			u    models.UserSummary
			role string
		)
		if err := rows.Scan(&u.ID, &u.Name, &role); err != nil {
			return nil, dbError(err)
		}
		u.Role = parseStoredRole(role)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}

	return out, nil
}

func (r *SQLRepository) Lock(ctx context.Context) error {
	if r.dialect != dbx.DialectPostgres {
		// SQLite transactions are opened IMMEDIATE and already hold the write lock.
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `LOCK TABLE users IN EXCLUSIVE MODE`); err != nil {
		return dbError(err)
	}
	return nil
}

// --- helpers below ---

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		u    models.User
		tok  sql.NullString
		role string
	)

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), arg).
		Scan(&u.ID, &u.Name, &u.PasswordHash, &tok, &role)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbError(err)
	}

	if tok.Valid {
		u.TokenHash = &tok.String
	}
	u.Role = parseStoredRole(role)

	return &u, nil
}

func (r *SQLRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrConflict
		}
		return dbError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

// parseStoredRole maps an unknown stored role to RoleInvalid so it can
// never satisfy an authorization check.
func parseStoredRole(s string) models.Role {
	role, err := models.ParseRole(s)
	if err != nil {
		return models.RoleInvalid
	}
	return role
}

func dbError(err error) error {
	if dbx.IsBusy(err) {
		return fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("db error: %w", err)
}
