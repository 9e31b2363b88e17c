package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"patio/auth"
	"patio/kv"
	"patio/models"
	"patio/push"
	"patio/repository"
	"patio/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminSecret = "admin-secret"

var testNow = time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)

// recordingBlobs records every Delete call and can fail Puts of one object.
// Deletes fail on a cancelled context like a real bucket client.
type recordingBlobs struct {
	*storage.MemoryStore
	mu         sync.Mutex
	deletes    [][]string
	failPut    func(id string) bool
	failDelete bool
}

func (r *recordingBlobs) Put(ctx context.Context, id string, reader io.Reader, contentType string) error {
	if r.failPut != nil && r.failPut(id) {
		return errors.New("bucket unavailable")
	}
	return r.MemoryStore.Put(ctx, id, reader, contentType)
}

func (r *recordingBlobs) Delete(ctx context.Context, ids ...string) error {
	r.mu.Lock()
	r.deletes = append(r.deletes, append([]string(nil), ids...))
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.failDelete {
		return errors.New("bucket unavailable")
	}
	return r.MemoryStore.Delete(ctx, ids...)
}

func (r *recordingBlobs) deleted() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.deletes...)
}

type testEnv struct {
	t      *testing.T
	api    *API
	repo   *repository.Repository
	blobs  *recordingBlobs
	engine *gin.Engine
	tokens map[string]string
}

// newTestEnv creates users "boss" (admin), "ann" (access to L1) and "bob" (no
// access). Their bearer headers are in env.tokens.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := repository.New(kv.NewMemoryStore())
	tokens := auth.NewTokens("test-secret", time.Hour)
	blobs := &recordingBlobs{MemoryStore: storage.NewMemoryStore()}
	api := New(repo, blobs, tokens, push.NewHub())
	api.Now = func() time.Time { return testNow }
	n := 0
	api.NewID = func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}

	engine := gin.New()
	authRouter := &auth.Router{Base: engine, Resolver: &auth.Resolver{Users: repo, Tokens: tokens, AdminSecret: adminSecret}}
	api.Register(engine, authRouter, func(c *gin.Context) { c.Next() })

	env := &testEnv{t: t, api: api, repo: repo, blobs: blobs, engine: engine, tokens: map[string]string{}}
	for _, u := range []models.User{
		{Username: "boss", AdminAccess: true},
		{Username: "ann", LibraryAccess: []string{"L1", "P1"}},
		{Username: "bob"},
	} {
		hash, err := auth.HashPassword(u.Username + "-pw")
		require.NoError(t, err)
		u.Password = hash
		require.NoError(t, repo.CreateUser(context.Background(), &u))
		token, err := tokens.Issue(u.Username)
		require.NoError(t, err)
		env.tokens[u.Username] = "Bearer " + token
	}
	env.tokens["admin"] = adminSecret
	return env
}

// do sends a JSON request as the given caller ("" for anonymous).
func (e *testEnv) do(method, path, as string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != "" {
		req.Header.Set("Authorization", e.tokens[as])
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e *testEnv) createLibrary(id string, kind models.LibraryKind) {
	e.t.Helper()
	w := e.do(http.MethodPost, "/library", "admin", gin.H{"id": id, "type": kind})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
}

func (e *testEnv) createAlbum(library string, body gin.H) models.Album {
	e.t.Helper()
	w := e.do(http.MethodPost, "/album?library="+library, "admin", body)
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	return decode[models.Album](e.t, w)
}

func (e *testEnv) putPhotoBlobs(ids ...string) {
	e.t.Helper()
	for _, id := range ids {
		for _, objectID := range storage.PhotoObjectIDs(id) {
			require.NoError(e.t, e.blobs.Put(context.Background(), objectID, bytes.NewBufferString(objectID), "image/jpeg"))
		}
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/login", "", gin.H{"username": "ann", "password": "ann-pw"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[LoginResponse](t, w)
	assert.Equal(t, "ann", resp.User.Username)
	assert.Empty(t, resp.User.Password)
	assert.NotContains(t, w.Body.String(), "password")
	username, err := env.api.Tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "ann", username)

	w = env.do(http.MethodPost, "/login", "", gin.H{"username": "ann", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Incorrect password", w.Body.String())

	w = env.do(http.MethodPost, "/login", "", gin.H{"username": "zed", "password": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/login", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/user", "boss", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"boss", "ann", "bob"}, decode[[]string](t, w))

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/user", "ann", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/user", "", nil).Code)

	w = env.do(http.MethodPost, "/user", "boss", gin.H{"username": "cat", "password": "pw", "library_access": []string{"L1"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[models.User](t, w)
	assert.Equal(t, "cat", created.Username)
	assert.Equal(t, "boss", created.CreatedBy)
	assert.NotContains(t, w.Body.String(), "password")

	w = env.do(http.MethodPost, "/user", "boss", gin.H{"username": "cat", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")

	w = env.do(http.MethodPost, "/user", "boss", gin.H{"username": "bad/name", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Library access is replaced, not merged
	w = env.do(http.MethodPatch, "/user/cat", "boss", gin.H{"library_access": []string{"L2"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"L2"}, decode[models.User](t, w).LibraryAccess)

	w = env.do(http.MethodPatch, "/user/zed", "boss", gin.H{"admin_access": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserGet(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/user/ann", "ann", nil)
	require.Equal(t, http.StatusOK, w.Code)
	self := decode[models.User](t, w)
	assert.Equal(t, "ann", self.Username)
	assert.Empty(t, self.CreatedBy, "audit fields are for admins")

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/user/ann", "bob", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/user/ann", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/user/zed", "bob", nil).Code, "no user enumeration")
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/user/zed", "boss", nil).Code)
}

func TestUserSelfProtection(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPatch, "/user/boss", "boss", gin.H{"admin_access": false})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	u, err := env.repo.User(context.Background(), "boss")
	require.NoError(t, err)
	assert.True(t, u.AdminAccess)

	w = env.do(http.MethodDelete, "/user/boss", "boss", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	_, err = env.repo.User(context.Background(), "boss")
	assert.NoError(t, err)

	// Other admins may
	w = env.do(http.MethodPatch, "/user/boss", "admin", gin.H{"admin_access": false})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w := env.do(http.MethodDelete, "/user/bob", "boss", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	for i := 0; i < 2; i++ {
		w = env.do(http.MethodDelete, "/user/bob", "boss", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	root, err := env.repo.Root(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"boss", "ann"}, root.Users)

	// The deleted user's token no longer works
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/user/bob", "bob", nil).Code)
}
