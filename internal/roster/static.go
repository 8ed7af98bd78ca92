package roster

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/staffdesk/messenger/internal/domain"
	internal_errors "github.com/staffdesk/messenger/shared/errors"
)

// Static is a Provider over a fixed user list with a switchable current user.
type Static struct {
	mu      sync.RWMutex
	users   []domain.User
	current *domain.User
}

var _ Provider = (*Static)(nil)

type rosterFile struct {
	Users []domain.User `yaml:"users" validate:"required,dive"`
}

func NewStatic(users []domain.User) (*Static, error) {
	if err := Validate(users); err != nil {
		return nil, err
	}
	cp := make([]domain.User, len(users))
	copy(cp, users)
	return &Static{users: cp}, nil
}

// Load reads a yaml roster file of the form `users: [{id, name, role, avatar}]`.
func Load(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse roster file: %w", err)
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid roster file: %w", err)
	}
	return NewStatic(f.Users)
}

func (s *Static) CurrentUser() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.User{}, false
	}
	return *s.current, true
}

func (s *Static) Roster() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]domain.User, len(s.users))
	copy(cp, s.users)
	return cp
}

// Login makes id the current user.
func (s *Static) Login(id domain.UserId) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := Find(s.users, id)
	if !ok {
		return domain.User{}, fmt.Errorf("%w: %s", internal_errors.ErrUnknownUser, id)
	}
	s.current = &u
	return u, nil
}

func (s *Static) Logout() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}
