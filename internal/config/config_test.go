package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/messenger/internal/domain"
)

func writeConfig(t *testing.T, public, private string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public.yaml"), []byte(public), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "private.yaml"), []byte(private), 0o600))
	return dir
}

func TestMustLoad(t *testing.T) {
	dir := writeConfig(t,
		"http_addr: ':8080'\nroster_file: roster.yaml\nstorage:\n  backend: fs\n  fs_path: data\nattachments:\n  dir: media\n",
		"pg:\n  host: localhost\n  port: 5432\n  user: u\n  password: p\n  dbname: messenger\n",
	)

	cfg := MustLoad(dir)
	assert.Equal(t, ":8080", cfg.Public.HttpAddr)
	assert.Equal(t, "fs", cfg.Public.Storage.Backend)
	assert.Equal(t, DefaultStorageKey, cfg.Public.Storage.Key)
	assert.EqualValues(t, domain.MaxAttachmentSize, cfg.Public.Attachments.MaxSizeBytes)
	assert.Equal(t, DefaultPreviewMaxPx, cfg.Public.Attachments.PreviewMaxPx)
	assert.Equal(t, "info", cfg.Public.LogLevel)
	assert.Equal(t, "host=localhost port=5432 user=u password=p dbname=messenger sslmode=disable", cfg.Private.Pg.ConnString())
}

func TestMustLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown backend":    "http_addr: ':8080'\nroster_file: r.yaml\nstorage:\n  backend: etcd\nattachments:\n  dir: media\n",
		"fs without path":    "http_addr: ':8080'\nroster_file: r.yaml\nstorage:\n  backend: fs\nattachments:\n  dir: media\n",
		"limit above 10 MiB": "http_addr: ':8080'\nroster_file: r.yaml\nstorage:\n  backend: memory\nattachments:\n  dir: media\n  max_size_bytes: 10485761\n",
		"missing roster":     "http_addr: ':8080'\nstorage:\n  backend: memory\nattachments:\n  dir: media\n",
	}
	for name, public := range cases {
		t.Run(name, func(t *testing.T) {
			dir := writeConfig(t, public, "")
			assert.Panics(t, func() { MustLoad(dir) })
		})
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	assert.Panics(t, func() { MustLoad(t.TempDir()) })
}
