package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/messenger/internal/domain"
	internal_errors "github.com/staffdesk/messenger/shared/errors"
)

var (
	admin1 = domain.User{Id: "admin1", Name: "Anna", Role: domain.RoleAdmin}
	admin2 = domain.User{Id: "admin2", Name: "Boris", Role: domain.RoleAdmin}
	emp1   = domain.User{Id: "emp1", Name: "Vera", Role: domain.RolePhotographer}
	emp2   = domain.User{Id: "emp2", Name: "Gleb", Role: domain.RoleDesigner}
)

func ids(users []domain.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Id)
	}
	return out
}

func TestCounterparts(t *testing.T) {
	users := []domain.User{admin1, emp1, admin2, emp2}

	t.Run("admin sees everybody but self", func(t *testing.T) {
		assert.Equal(t, []string{"emp1", "admin2", "emp2"}, ids(Counterparts(admin1, users)))
	})

	t.Run("employee sees admins only", func(t *testing.T) {
		assert.Equal(t, []string{"admin1", "admin2"}, ids(Counterparts(emp1, users)))
		assert.Equal(t, []string{"admin1", "admin2"}, ids(Counterparts(emp2, users)))
	})

	t.Run("self excluded for every role", func(t *testing.T) {
		for _, self := range users {
			for _, u := range Counterparts(self, users) {
				assert.NotEqual(t, self.Id, u.Id)
			}
		}
	})

	t.Run("one chat per eligible counterpart", func(t *testing.T) {
		for _, self := range users {
			got := Counterparts(self, users)
			want := 0
			for _, u := range users {
				if u.Id != self.Id && (self.IsAdmin() || u.IsAdmin()) {
					want++
				}
			}
			assert.Len(t, got, want, "self=%s", self.Id)
		}
	})

	t.Run("unknown role has no counterparts", func(t *testing.T) {
		assert.Empty(t, Counterparts(domain.User{Id: "x", Role: "intern"}, users))
	})

	t.Run("lone admin", func(t *testing.T) {
		assert.Empty(t, Counterparts(admin1, []domain.User{admin1}))
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]domain.User{admin1, emp1}))
	assert.Error(t, Validate([]domain.User{admin1, admin1}))
	assert.Error(t, Validate([]domain.User{{Id: "x", Name: "X", Role: "intern"}}))
	assert.Error(t, Validate([]domain.User{{Name: "nobody", Role: domain.RoleAdmin}}))
}

func TestStatic(t *testing.T) {
	s, err := NewStatic([]domain.User{admin1, emp1})
	require.NoError(t, err)

	_, ok := s.CurrentUser()
	assert.False(t, ok)

	u, err := s.Login("emp1")
	require.NoError(t, err)
	assert.Equal(t, emp1, u)
	cur, ok := s.CurrentUser()
	assert.True(t, ok)
	assert.Equal(t, emp1, cur)

	_, err = s.Login("ghost")
	assert.ErrorIs(t, err, internal_errors.ErrUnknownUser)
	cur, _ = s.CurrentUser()
	assert.Equal(t, emp1, cur, "failed login keeps the previous user")

	s.Logout()
	_, ok = s.CurrentUser()
	assert.False(t, ok)

	// Roster returns a copy
	r := s.Roster()
	r[0].Name = "changed"
	assert.Equal(t, "Anna", s.Roster()[0].Name)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "roster.yaml")
		content := []byte("users:\n  - {id: admin1, name: Anna, role: admin}\n  - {id: emp1, name: Vera, role: photographer, avatar: 'https://x/v.png'}\n")
		require.NoError(t, os.WriteFile(path, content, 0o600))

		s, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"admin1", "emp1"}, ids(s.Roster()))
		assert.Equal(t, "https://x/v.png", s.Roster()[1].Avatar)
	})

	t.Run("missing name", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("users:\n  - {id: admin1, role: admin}\n"), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}
