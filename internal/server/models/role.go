package models

import (
	"fmt"
	"strings"
)

// Role is an ordered privilege level. The zero value is RoleInvalid, which
// sits below every real role so an unknown value never passes a gate.
type Role uint8

const (
	RoleInvalid Role = iota
	RoleUser
	RoleMember
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleUser:   "user",
	RoleMember: "member",
	RoleAdmin:  "admin",
}

// ParseRole maps stored or submitted role text to a Role. Unknown text
// yields RoleInvalid together with an error.
func ParseRole(s string) (Role, error) {
	switch strings.TrimSpace(s) {
	case "user":
		return RoleUser, nil
	case "member":
		return RoleMember, nil
	case "admin":
		return RoleAdmin, nil
	}
	return RoleInvalid, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return "invalid"
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast reports whether r satisfies min. An invalid r never does, nor
// does anything checked against an invalid min.
func (r Role) AtLeast(min Role) bool {
	if !r.Valid() || !min.Valid() {
		return false
	}
	return r >= min
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
