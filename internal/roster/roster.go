// Package roster decides who may message whom and supplies the current
// identity and the list of known users.
package roster

import (
	"fmt"

	"github.com/staffdesk/messenger/internal/domain"
)

// Provider is the read interface the messenger consumes from the host
// application's identity layer.
type Provider interface {
	CurrentUser() (domain.User, bool)
	Roster() []domain.User
}

// Counterparts returns, in roster order, the users self is permitted to
// message. Administrators talk to everybody else; every other role talks to
// administrators only. Self is never a counterpart.
func Counterparts(self domain.User, users []domain.User) []domain.User {
	var keep func(u domain.User) bool
	switch self.Role {
	case domain.RoleAdmin:
		keep = func(u domain.User) bool { return true }
	case domain.RolePhotographer, domain.RoleDesigner:
		keep = func(u domain.User) bool { return u.Role == domain.RoleAdmin }
	default:
		return nil
	}

	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.Id == self.Id {
			continue
		}
		if keep(u) {
			out = append(out, u)
		}
	}
	return out
}

// Find returns the user with the given id.
func Find(users []domain.User, id domain.UserId) (domain.User, bool) {
	for _, u := range users {
		if u.Id == id {
			return u, true
		}
	}
	return domain.User{}, false
}

// Validate checks ids are unique and roles belong to the known set.
func Validate(users []domain.User) error {
	seen := make(map[domain.UserId]struct{}, len(users))
	for _, u := range users {
		if u.Id == "" {
			return fmt.Errorf("user %q: empty id", u.Name)
		}
		if !u.Role.Valid() {
			return fmt.Errorf("user %s: unknown role %q", u.Id, u.Role)
		}
		if _, dup := seen[u.Id]; dup {
			return fmt.Errorf("user %s: duplicated id", u.Id)
		}
		seen[u.Id] = struct{}{}
	}
	return nil
}
