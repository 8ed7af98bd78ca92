package domain

import "fmt"

type UserId = string

// Role is the closed set of organization roles known to the messenger.
type Role string

const (
	RoleAdmin        Role = "admin"
	RolePhotographer Role = "photographer"
	RoleDesigner     Role = "designer"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RolePhotographer, RoleDesigner}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePhotographer, RoleDesigner:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User is supplied by the identity provider and is read-only to the messenger.
type User struct {
	Id     UserId `yaml:"id" json:"id" validate:"required"`
	Name   string `yaml:"name" json:"name" validate:"required"`
	Role   Role   `yaml:"role" json:"role" validate:"required"`
	Avatar string `yaml:"avatar" json:"avatar,omitempty"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
