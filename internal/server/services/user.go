// Package services contains server-side business logic. This file implements
// UserService, the authentication and authorization gateway: registration,
// login with token rotation, bearer token resolution, role gating and the
// administrative user operations.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/camvault/internal/common"
	"github.com/dmitrijs2005/camvault/internal/dbx"
	"github.com/dmitrijs2005/camvault/internal/logging"
	"github.com/dmitrijs2005/camvault/internal/server/auth"
	"github.com/dmitrijs2005/camvault/internal/server/models"
	"github.com/dmitrijs2005/camvault/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9]{5,20}$`)

const (
	minPasswordLen = 8
	maxPasswordLen = 64
)

// AuthPolicy is the immutable configuration of the gateway.
type AuthPolicy struct {
	// MaxUsers caps the total number of stored users, bootstrap admin included.
	MaxUsers int
	// AdminName is the bootstrap administrator. It can never be demoted or
	// deleted through the API.
	AdminName string
	// BcryptCost defaults to bcrypt.DefaultCost when zero.
	BcryptCost int
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	policy      AuthPolicy
	logger      logging.Logger

	// registerMu serializes registrations within the process. The
	// transaction below does the same across processes.
	registerMu sync.Mutex

	// dummyHash is compared against on unknown names so a failed login
	// costs the same whether or not the user exists.
	dummyHash []byte
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, policy AuthPolicy, logger logging.Logger) (*UserService, error) {
	if policy.BcryptCost == 0 {
		policy.BcryptCost = bcrypt.DefaultCost
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("camvault-no-such-user"), policy.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt: %w", err)
	}

	return &UserService{
		db:          db,
		repomanager: m,
		policy:      policy,
		logger:      logger.With("module", "users"),
		dummyHash:   dummy,
	}, nil
}

// Bootstrap inserts the administrator with a fresh token if no user of that
// name exists. Running it again is a no-op.
func (s *UserService) Bootstrap(ctx context.Context, name, password string) error {
	if name == "" || password == "" {
		return fmt.Errorf("%w: admin name and password are required", common.ErrValidation)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}

	created := false
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if err := repo.Lock(ctx); err != nil {
			return err
		}

		_, err := repo.GetByName(ctx, name)
		if err == nil {
			return nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		_, tokenHash, err := newToken()
		if err != nil {
			return err
		}

		_, err = repo.Create(ctx, &models.User{
			Name:         name,
			PasswordHash: hash,
			TokenHash:    &tokenHash,
			Role:         models.RoleAdmin,
		})
		created = err == nil
		return err
	})
	if err != nil {
		return fmt.Errorf("error bootstrapping admin: %w", err)
	}

	if created {
		s.logger.Info(ctx, "bootstrap admin created", "name", name)
	}
	return nil
}

// Register validates the credentials and inserts a user-role account. The
// capacity check and the insert run in one serialized transaction.
func (s *UserService) Register(ctx context.Context, name, password string) (*models.Session, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	token, tokenHash, err := newToken()
	if err != nil {
		return nil, err
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if err := repo.Lock(ctx); err != nil {
			return err
		}

		n, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		if n >= s.policy.MaxUsers {
			return common.ErrUserLimit
		}

		_, err = repo.Create(ctx, &models.User{
			Name:         name,
			PasswordHash: hash,
			TokenHash:    &tokenHash,
			Role:         models.RoleUser,
		})
		return err
	})
	if err != nil {
		return nil, storeError("error creating user", err)
	}

	s.logger.Info(ctx, "user registered", "name", name)
	return &models.Session{Role: models.RoleUser, Token: token}, nil
}

// Login verifies the password and always issues a new token, replacing
// whatever session the user had.
func (s *UserService) Login(ctx context.Context, name, password string) (*models.Session, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, common.ErrInvalidCredentials
		}
		return nil, storeError("error loading user", err)
	}

	if !s.checkPassword(user.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}

	token, tokenHash, err := newToken()
	if err != nil {
		return nil, err
	}

	if err := repo.SetToken(ctx, user.ID, &tokenHash); err != nil {
		return nil, storeError("error rotating token", err)
	}

	return &models.Session{Role: user.Role, Token: token}, nil
}

// Authenticate resolves a bearer token to the identity holding it.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, common.ErrMissingToken
	}

	user, err := s.repomanager.Users(s.db).GetByTokenHash(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, storeError("error resolving token", err)
	}

	return &models.Identity{UserID: user.ID, Name: user.Name, Role: user.Role}, nil
}

// Authorize checks identity against the minimum role. It depends on
// nothing but its arguments.
func Authorize(identity *models.Identity, min models.Role) (*models.Identity, error) {
	if identity == nil || !identity.Role.AtLeast(min) {
		return nil, common.ErrInsufficientRole
	}
	return identity, nil
}

// ChangeRole sets target's role to user or member and revokes its session.
// Self, the bootstrap admin and any admin are off limits.
func (s *UserService) ChangeRole(ctx context.Context, actor *models.Identity, targetID int64, role models.Role) error {
	if _, err := Authorize(actor, models.RoleAdmin); err != nil {
		return err
	}
	if role != models.RoleUser && role != models.RoleMember {
		return common.ErrInvalidRole
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if err := s.checkTarget(ctx, repo, actor, targetID); err != nil {
			return err
		}
		return repo.SetRoleAndClearToken(ctx, targetID, role)
	})
	if err != nil {
		return storeError("error changing role", err)
	}

	s.logger.Info(ctx, "role changed", "actor", actor.Name, "target_id", targetID, "role", role.String())
	return nil
}

// DeleteUser removes target under the same protection rules as ChangeRole.
func (s *UserService) DeleteUser(ctx context.Context, actor *models.Identity, targetID int64) error {
	if _, err := Authorize(actor, models.RoleAdmin); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if err := s.checkTarget(ctx, repo, actor, targetID); err != nil {
			return err
		}
		return repo.Delete(ctx, targetID)
	})
	if err != nil {
		return storeError("error deleting user", err)
	}

	s.logger.Info(ctx, "user deleted", "actor", actor.Name, "target_id", targetID)
	return nil
}

// ListUsers returns every user except the caller.
func (s *UserService) ListUsers(ctx context.Context, actor *models.Identity) ([]models.UserSummary, error) {
	if _, err := Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}

	all, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, storeError("error listing users", err)
	}

	out := make([]models.UserSummary, 0, len(all))
	for _, u := range all {
		if u.ID != actor.UserID {
			out = append(out, u)
		}
	}
	return out, nil
}

// CountUsers pings the store with a cheap query.
func (s *UserService) CountUsers(ctx context.Context) (int, error) {
	n, err := s.repomanager.Users(s.db).Count(ctx)
	if err != nil {
		return 0, storeError("error counting users", err)
	}
	return n, nil
}

// --- helpers below ---

type targetLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Lock(ctx context.Context) error
}

func (s *UserService) checkTarget(ctx context.Context, repo targetLookup, actor *models.Identity, targetID int64) error {
	if err := repo.Lock(ctx); err != nil {
		return err
	}

	target, err := repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	if target.ID == actor.UserID || target.Name == s.policy.AdminName || target.Role == models.RoleAdmin {
		return common.ErrProtectedUser
	}
	return nil
}

func (s *UserService) hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.policy.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt: %w", err)
	}
	return hash, nil
}

func (s *UserService) checkPassword(hash []byte, candidate string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(candidate)) == nil
}

func newToken() (token, tokenHash string, err error) {
	token, err = auth.GenerateToken()
	if err != nil {
		return "", "", fmt.Errorf("token generation: %w", err)
	}
	return token, auth.HashToken(token), nil
}

func validateName(name string) error {
	if !namePattern.MatchString(name) {
		return common.ErrInvalidName
	}
	return nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	// bcrypt refuses input over 72 bytes
	if n < minPasswordLen || n > maxPasswordLen || len(password) > 72 {
		return common.ErrInvalidPassword
	}
	for _, r := range password {
		if unicode.IsSpace(r) {
			return common.ErrInvalidPassword
		}
	}
	return nil
}

// storeError keeps taxonomy errors as they are and labels everything else.
func storeError(op string, err error) error {
	for _, class := range []error{
		common.ErrValidation, common.ErrAuthentication, common.ErrForbidden,
		common.ErrorNotFound, common.ErrConflict, common.ErrCapacity,
	} {
		if errors.Is(err, class) {
			return err
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
