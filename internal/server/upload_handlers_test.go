package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchkit-dev/launchkit/internal/models"
	"github.com/launchkit-dev/launchkit/internal/tasks"
)

func uploadRequest(t *testing.T, token, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", bearer(token))
	}
	return req
}

func (e *testEnv) upload(t *testing.T, token, filename string, content []byte) models.Upload {
	t.Helper()
	rec := e.do(uploadRequest(t, token, filename, content))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var upload models.Upload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upload))
	return upload
}

func authedRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", bearer(token))
	return req
}

func TestUploads_RequireSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(uploadRequest(t, "", "hello.txt", []byte("hello")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/uploads", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateUpload(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUp(t, "ada@example.com")

	upload := env.upload(t, token, "../My Notes.txt", []byte("hello world"))

	assert.Len(t, upload.ID, 26)
	assert.Equal(t, "uploads", upload.Bucket)
	assert.Equal(t, "My_Notes.txt", upload.Filename)
	assert.Equal(t, int64(11), upload.Size)
	assert.True(t, strings.HasPrefix(upload.ContentType, "text/plain"), upload.ContentType)
	assert.True(t, strings.HasPrefix(upload.Key, "users/"+upload.UserID+"/"), upload.Key)
	assert.True(t, strings.HasSuffix(upload.Key, "-My_Notes.txt"), upload.Key)

	assert.Equal(t, []byte("hello world"), env.store.objects[upload.Key])
}

func TestCreateUpload_Errors(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUp(t, "ada@example.com")

	t.Run("too large", func(t *testing.T) {
		rec := env.do(uploadRequest(t, token, "big.bin", bytes.Repeat([]byte("a"), 2048)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", bearer(token))
		assert.Equal(t, http.StatusBadRequest, env.do(req).Code)
	})

	assert.Empty(t, env.store.objects)
}

func TestListUploads(t *testing.T) {
	env := newTestEnv(t)
	ada := env.signUp(t, "ada@example.com")
	grace := env.signUp(t, "grace@example.com")

	first := env.upload(t, ada, "a.txt", []byte("a"))
	second := env.upload(t, ada, "b.txt", []byte("b"))
	env.upload(t, grace, "c.txt", []byte("c"))

	rec := env.do(authedRequest(http.MethodGet, "/api/uploads", ada))
	require.Equal(t, http.StatusOK, rec.Code)

	var uploads []models.Upload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploads))
	require.Len(t, uploads, 2)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{uploads[0].ID, uploads[1].ID})
}

func TestDownloadUpload(t *testing.T) {
	env := newTestEnv(t)
	ada := env.signUp(t, "ada@example.com")
	grace := env.signUp(t, "grace@example.com")
	upload := env.upload(t, ada, "a.txt", []byte("a"))

	rec := env.do(authedRequest(http.MethodGet, "/api/uploads/"+upload.ID, ada))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://minio.test/uploads/"+upload.Key, rec.Header().Get("Location"))

	// Other users cannot see it
	rec = env.do(authedRequest(http.MethodGet, "/api/uploads/"+upload.ID, grace))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUpload_EnqueuesObjectRemoval(t *testing.T) {
	env := newTestEnv(t)
	ada := env.signUp(t, "ada@example.com")
	upload := env.upload(t, ada, "a.txt", []byte("a"))

	rec := env.do(authedRequest(http.MethodDelete, "/api/uploads/"+upload.ID, ada))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, env.db.Model(&models.Upload{}).Count(&count).Error)
	assert.Zero(t, count)

	require.Len(t, env.queue.tasks, 1)
	assert.Equal(t, tasks.TypeRemoveObject, env.queue.tasks[0].Type())
	payload, err := tasks.ParseRemoveObjectPayload(env.queue.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, upload.Key, payload.Key)
	assert.Empty(t, env.store.removed)

	rec = env.do(authedRequest(http.MethodDelete, "/api/uploads/"+upload.ID, ada))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUpload_InlineRemoval(t *testing.T) {
	t.Run("no queue configured", func(t *testing.T) {
		env := newTestEnv(t, withoutQueue())
		ada := env.signUp(t, "ada@example.com")
		upload := env.upload(t, ada, "a.txt", []byte("a"))

		rec := env.do(authedRequest(http.MethodDelete, "/api/uploads/"+upload.ID, ada))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"uploads/" + upload.Key}, env.store.removed)
	})

	t.Run("enqueue fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.queue.err = errors.New("redis unavailable")
		ada := env.signUp(t, "ada@example.com")
		upload := env.upload(t, ada, "a.txt", []byte("a"))

		rec := env.do(authedRequest(http.MethodDelete, "/api/uploads/"+upload.ID, ada))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"uploads/" + upload.Key}, env.store.removed)
	})
}
