package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"patio/kv"
	"patio/models"
	"patio/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, VerifyPassword("correct horse", hash))
	assert.False(t, VerifyPassword("correct horse ", hash))
	assert.False(t, VerifyPassword("", hash))

	again, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salt is random")

	raw, err := base64.StdEncoding.DecodeString(hash)
	require.NoError(t, err)
	assert.Equal(t, "v01", string(raw[:3]))
	assert.Equal(t, []byte{0x00, 0x27, 0x10}, raw[19:22], "10000 iterations")
}

func TestVerifyPassword_malformed(t *testing.T) {
	valid, err := HashPassword("pw")
	require.NoError(t, err)
	raw, _ := base64.StdEncoding.DecodeString(valid)

	wrongVersion := append([]byte("v02"), raw[3:]...)
	zeroIter := append([]byte(nil), raw...)
	zeroIter[19], zeroIter[20], zeroIter[21] = 0, 0, 0

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not base64", "%%%"},
		{"short", base64.StdEncoding.EncodeToString(raw[:20])},
		{"wrong version", base64.StdEncoding.EncodeToString(wrongVersion)},
		{"zero iterations", base64.StdEncoding.EncodeToString(zeroIter)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, VerifyPassword("pw", tt.hash))
		})
	}
}

func TestTokens(t *testing.T) {
	tokens := NewTokens("secret", 2*time.Hour)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return now }

	token, err := tokens.Issue("ann")
	require.NoError(t, err)
	username, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ann", username)

	_, err = NewTokens("other", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	now = now.Add(3 * time.Hour)
	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	_, err = tokens.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentity(t *testing.T) {
	var anon *Identity
	assert.False(t, anon.Authenticated())
	assert.False(t, anon.IsAdmin())
	assert.False(t, anon.CanRead("L1"))
	assert.Equal(t, "", anon.Name())

	user := IdentityOf(&models.User{Username: "ann", LibraryAccess: []string{"L1"}})
	assert.True(t, user.CanRead("L1"))
	assert.True(t, user.CanWrite("L1"))
	assert.False(t, user.CanWrite("L2"))

	admin := &Identity{Username: "root", Admin: true}
	assert.True(t, admin.CanWrite("anything"))
}

func newResolver(t *testing.T) (*Resolver, *repository.Repository) {
	t.Helper()
	repo := repository.New(kv.NewMemoryStore())
	require.NoError(t, repo.CreateUser(context.Background(), &models.User{Username: "ann", LibraryAccess: []string{"L1"}}))
	return &Resolver{Users: repo, Tokens: NewTokens("secret", time.Hour), AdminSecret: "s3cr3t"}, repo
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	r, repo := newResolver(t)
	token, err := r.Tokens.Issue("ann")
	require.NoError(t, err)
	ghost, err := r.Tokens.Issue("ghost")
	require.NoError(t, err)

	id, err := r.Resolve(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "ann", id.Name())
	assert.False(t, id.IsAdmin())

	id, err = r.Resolve(ctx, "s3cr3t")
	require.NoError(t, err)
	assert.Equal(t, AdminUsername, id.Name())
	assert.True(t, id.IsAdmin())

	for _, header := range []string{"", "s3cr3t ", "Bearer nope", "Bearer " + ghost, token} {
		id, err = r.Resolve(ctx, header)
		require.NoError(t, err)
		assert.Nil(t, id, "header %q", header)
	}

	require.NoError(t, repo.RemoveUser(ctx, "ann"))
	id, err = r.Resolve(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.Nil(t, id, "tokens of deleted users are anonymous")
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r, _ := newResolver(t)
	token, err := r.Tokens.Issue("ann")
	require.NoError(t, err)

	engine := gin.New()
	router := &Router{Base: engine, Resolver: r}
	ok := func(c *gin.Context, id *Identity) { c.String(http.StatusOK, id.Name()) }
	router.GET("/open", ok)
	router.POST("/user", ok, RequireUser)
	router.DELETE("/admin", ok, RequireAdmin)

	tests := []struct {
		method, path, auth string
		want               int
		body               string
	}{
		{"GET", "/open", "", http.StatusOK, ""},
		{"GET", "/open", "Bearer " + token, http.StatusOK, "ann"},
		{"POST", "/user", "", http.StatusUnauthorized, "Unauthorized"},
		{"POST", "/user", "Bearer " + token, http.StatusOK, "ann"},
		{"DELETE", "/admin", "Bearer " + token, http.StatusUnauthorized, "Unauthorized"},
		{"DELETE", "/admin", "s3cr3t", http.StatusOK, AdminUsername},
	}
	for _, tt := range tests {
		t.Run(tt.method+tt.path+tt.auth, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}
