package validation

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartBody(t *testing.T, fileSize int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("json", `{"text":"hi"}`))
	fw, err := mw.CreateFormFile("file", "a.bin")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte{1}, fileSize))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestValidateAndParseMultipart(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		body, ct := multipartBody(t, 1024)
		req := httptest.NewRequest("POST", "/", body)
		req.Header.Set("Content-Type", ct)

		require.NoError(t, ValidateAndParseMultipart(req, httptest.NewRecorder(), 4096))
		assert.Equal(t, `{"text":"hi"}`, req.FormValue("json"))
	})

	t.Run("over limit", func(t *testing.T) {
		body, ct := multipartBody(t, 8192)
		req := httptest.NewRequest("POST", "/", body)
		req.Header.Set("Content-Type", ct)

		err := ValidateAndParseMultipart(req, httptest.NewRecorder(), 4096)
		assert.ErrorIs(t, err, ErrPayloadTooLarge)
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader("plain"))
		req.Header.Set("Content-Type", "text/plain")

		err := ValidateAndParseMultipart(req, httptest.NewRecorder(), 4096)
		assert.ErrorIs(t, err, ErrMalformedForm)
	})
}

func TestCalculateMaxRequestSize(t *testing.T) {
	assert.EqualValues(t, 10<<20+1<<20, CalculateMaxRequestSize(10<<20))
}
