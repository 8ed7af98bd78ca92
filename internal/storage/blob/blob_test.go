package blob

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_errors "github.com/staffdesk/messenger/shared/errors"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestSaveRead(t *testing.T) {
	storage, err := New(t.TempDir())
	require.NoError(t, err)

	t.Run("saves and reads back", func(t *testing.T) {
		content := []byte("report contents")
		ref, n, err := storage.Save(bytes.NewReader(content), "Report.PDF")
		require.NoError(t, err)
		assert.EqualValues(t, len(content), n)
		assert.True(t, strings.HasSuffix(ref, ".pdf"))

		rc, err := storage.Read(ref)
		require.NoError(t, err)
		defer rc.Close()
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("unique refs for same name", func(t *testing.T) {
		a, _, err := storage.Save(strings.NewReader("a"), "x.txt")
		require.NoError(t, err)
		b, _, err := storage.Save(strings.NewReader("b"), "x.txt")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("copy failure removes partial file", func(t *testing.T) {
		before := countFiles(t, storage.rootPath)
		_, _, err := storage.Save(failingReader{}, "x.bin")
		assert.Error(t, err)
		assert.Equal(t, before, countFiles(t, storage.rootPath))
	})
}

func TestReadErrors(t *testing.T) {
	storage, err := New(t.TempDir())
	require.NoError(t, err)

	for _, ref := range []string{"", "../secret", "/etc/passwd", "ab/missing.png"} {
		_, err := storage.Read(ref)
		assert.ErrorIs(t, err, internal_errors.ErrAttachmentNotFound, "ref=%q", ref)
	}
}

func TestDelete(t *testing.T) {
	storage, err := New(t.TempDir())
	require.NoError(t, err)

	ref, _, err := storage.Save(strings.NewReader("x"), "x.txt")
	require.NoError(t, err)
	require.NoError(t, storage.Delete(ref))
	require.NoError(t, storage.Delete(ref), "already gone")

	_, err = storage.Read(ref)
	assert.ErrorIs(t, err, internal_errors.ErrAttachmentNotFound)
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	require.NoError(t, filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return err
	}))
	return n
}
