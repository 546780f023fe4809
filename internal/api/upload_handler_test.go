package api

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ignite/blast-sender/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload_CSV(t *testing.T) {
	env := setupTestServer(t, nil)
	csv := "Email,First Name\nana@example.com,Ana\n,Skipped\nbo@example.com,\n"

	rec := env.do(uploadRequest(t, "file", "march.csv", csv))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"count": 2,
		"recipients": [
			{"email": "ana@example.com", "name": "Ana"},
			{"email": "bo@example.com", "name": ""}
		]
	}`, rec.Body.String())

	assert.Equal(t, []string{"march.csv"}, env.archiver.names)
	assert.Equal(t, csv, string(env.archiver.data[0]))
}

func TestUpload_NoEmailColumn(t *testing.T) {
	env := setupTestServer(t, nil)

	rec := env.do(uploadRequest(t, "file", "list.csv", "name\nAna\n"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0,"recipients":[]}`, rec.Body.String())
}

func TestUpload_ArchiveFailureIsNotFatal(t *testing.T) {
	env := setupTestServer(t, nil)
	env.archiver.err = errors.New("AccessDenied")

	rec := env.do(uploadRequest(t, "file", "list.csv", "email\nana@example.com\n"))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpload_NoFile(t *testing.T) {
	env := setupTestServer(t, nil)

	rec := env.do(uploadRequest(t, "attachment", "list.csv", "email\n"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No file uploaded"}`, rec.Body.String())
}

func TestUpload_NotMultipart(t *testing.T) {
	env := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No file uploaded"}`, rec.Body.String())
}

func TestUpload_UnreadableFile(t *testing.T) {
	env := setupTestServer(t, nil)

	rec := env.do(uploadRequest(t, "file", "list.xlsx", "this is not a workbook"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid XLSX")
}

func TestUpload_TooLarge(t *testing.T) {
	env := setupTestServer(t, nil, func(cfg *config.Config) { cfg.Uploads.MaxBytes = 1 << 10 })

	rec := env.do(uploadRequest(t, "file", "list.csv", "email\n"+strings.Repeat("a@x.test\n", 500)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, env.archiver.names)
}
