package setup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/messenger/internal/config"
	"github.com/staffdesk/messenger/internal/service"
	"github.com/staffdesk/messenger/internal/storage/fs"
	"github.com/staffdesk/messenger/internal/storage/memory"
	"github.com/staffdesk/messenger/internal/storage/sqlite"
)

const rosterYaml = `users:
  - {id: admin1, name: Anna, role: admin}
  - {id: emp1, name: Vera, role: photographer}
`

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	rosterFile := filepath.Join(dir, "roster.yaml")
	require.NoError(t, os.WriteFile(rosterFile, []byte(rosterYaml), 0o644))
	return &config.Config{Public: config.Public{
		HttpAddr:   ":0",
		RosterFile: rosterFile,
		Storage: config.Storage{
			Backend:    backend,
			Key:        config.DefaultStorageKey,
			FsPath:     filepath.Join(dir, "snapshots"),
			SqlitePath: filepath.Join(dir, "messenger.db"),
		},
		Attachments: config.Attachments{Dir: filepath.Join(dir, "attachments")},
	}}
}

func TestNewStorage(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		backend string
		check   func(t *testing.T, s service.SnapshotStorage)
	}{
		{"memory", func(t *testing.T, s service.SnapshotStorage) { assert.IsType(t, &memory.Storage{}, s) }},
		{"fs", func(t *testing.T, s service.SnapshotStorage) { assert.IsType(t, &fs.Storage{}, s) }},
		{"sqlite", func(t *testing.T, s service.SnapshotStorage) { assert.IsType(t, &sqlite.Storage{}, s) }},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			s, closer, err := NewStorage(ctx, testConfig(t, tt.backend))
			require.NoError(t, err)
			defer closer.Close()
			tt.check(t, s)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, _, err := NewStorage(ctx, testConfig(t, "etcd"))
		assert.Error(t, err)
	})
}

func TestSetupDependencies(t *testing.T) {
	ctx := context.Background()
	deps, err := SetupDependencies(ctx, testConfig(t, "fs"))
	require.NoError(t, err)

	_, err = deps.Sessions.Login(ctx, "emp1")
	require.NoError(t, err)
	store, err := deps.Sessions.Store(service.SurfaceMini)
	require.NoError(t, err)
	_, err = store.SendMessage(ctx, "admin1", "hello", nil)
	require.NoError(t, err)

	data, ok, err := deps.Storage.Get(ctx, "messenger_chats:emp1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(data), "hello")

	assert.NoError(t, deps.Close())
}

func TestSetupDependencies_BadRoster(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.Public.RosterFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := SetupDependencies(context.Background(), cfg)
	assert.Error(t, err)
}
