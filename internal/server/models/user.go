package models

type User struct {
	ID           int64
	Name         string
	PasswordHash []byte
	// TokenHash is the digest of the user's current session token, nil when
	// the session has been revoked.
	TokenHash *string
	Role      Role
}

// Session is what a successful registration or login hands back to the caller.
type Session struct {
	Role  Role
	Token string
}

// Identity is an authenticated caller, resolved from a bearer token.
type Identity struct {
	UserID int64
	Name   string
	Role   Role
}

// UserSummary is the admin-facing view of a user.
type UserSummary struct {
	ID   int64
	Name string
	Role Role
}
