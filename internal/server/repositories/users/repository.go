package users

import (
	"context"

	"github.com/dmitrijs2005/camvault/internal/server/models"
)

// Repository is the credential store. Every mutation touches a single row.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByName(ctx context.Context, name string) (*models.User, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	SetToken(ctx context.Context, id int64, tokenHash *string) error
	SetRoleAndClearToken(ctx context.Context, id int64, role models.Role) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]models.UserSummary, error)

	// Lock takes a table-level write lock for the rest of the current
	// transaction where the dialect needs one.
	Lock(ctx context.Context) error
}
