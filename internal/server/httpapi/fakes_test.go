package httpapi

import (
	"context"

	"github.com/dmitrijs2005/camvault/internal/common"
	"github.com/dmitrijs2005/camvault/internal/logging"
	"github.com/dmitrijs2005/camvault/internal/server/models"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// fakeUsers resolves tokens from a fixed table; the other operations are
// function fields set per test.
type fakeUsers struct {
	tokens map[string]*models.Identity

	register   func(name, password string) (*models.Session, error)
	login      func(name, password string) (*models.Session, error)
	changeRole func(actor *models.Identity, id int64, role models.Role) error
	deleteUser func(actor *models.Identity, id int64) error
	listUsers  func(actor *models.Identity) ([]models.UserSummary, error)
	countErr   error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{tokens: map[string]*models.Identity{
		"user-token":   {UserID: 3, Name: "plainuser", Role: models.RoleUser},
		"member-token": {UserID: 2, Name: "member01", Role: models.RoleMember},
		"admin-token":  {UserID: 1, Name: "camadmin", Role: models.RoleAdmin},
	}}
}

func (f *fakeUsers) Register(_ context.Context, name, password string) (*models.Session, error) {
	return f.register(name, password)
}

func (f *fakeUsers) Login(_ context.Context, name, password string) (*models.Session, error) {
	return f.login(name, password)
}

func (f *fakeUsers) Authenticate(_ context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, common.ErrMissingToken
	}
	id, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrInvalidToken
	}
	return id, nil
}

func (f *fakeUsers) ChangeRole(_ context.Context, actor *models.Identity, id int64, role models.Role) error {
	return f.changeRole(actor, id, role)
}

func (f *fakeUsers) DeleteUser(_ context.Context, actor *models.Identity, id int64) error {
	return f.deleteUser(actor, id)
}

func (f *fakeUsers) ListUsers(_ context.Context, actor *models.Identity) ([]models.UserSummary, error) {
	return f.listUsers(actor)
}

func (f *fakeUsers) CountUsers(context.Context) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.tokens), nil
}

type fakeMedia struct {
	listFrames func(page int) (*models.FramePage, error)
	fetchFrame func(name string) (*models.FrameData, error)
	live       *models.FrameData
}

func (f *fakeMedia) ListFrames(_ context.Context, page int) (*models.FramePage, error) {
	return f.listFrames(page)
}

func (f *fakeMedia) FetchFrame(_ context.Context, name string) (*models.FrameData, error) {
	return f.fetchFrame(name)
}

func (f *fakeMedia) FetchLive(context.Context) (*models.FrameData, error) {
	if f.live == nil {
		return nil, common.ErrorNotFound
	}
	return f.live, nil
}

func (f *fakeMedia) LiveName(context.Context) (string, error) {
	if f.live == nil {
		return "", common.ErrorNotFound
	}
	return f.live.Name, nil
}
