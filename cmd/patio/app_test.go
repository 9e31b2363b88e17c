package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"patio/auth"
	"patio/handlers"
	"patio/kv"
	"patio/models"
	"patio/push"
	"patio/repository"
	"patio/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app   *App
	out   *bytes.Buffer
	repo  *repository.Repository
	blobs *storage.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	repo := repository.New(kv.NewMemoryStore())
	tokens := auth.NewTokens("test-secret", time.Hour)
	blobs := storage.NewMemoryStore()
	api := handlers.New(repo, blobs, tokens, push.NewHub())
	engine := gin.New()
	authRouter := &auth.Router{Base: engine, Resolver: &auth.Resolver{Users: repo, Tokens: tokens, AdminSecret: "admin-secret"}}
	api.Register(engine, authRouter, func(c *gin.Context) { c.Next() })
	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	for _, l := range []struct {
		id   string
		kind models.LibraryKind
	}{{"L1", models.LibraryKindAlbums}, {"P1", models.LibraryKindPhotos}} {
		library, err := models.NewLibrary(l.id, l.kind, "admin", time.Now())
		require.NoError(t, err)
		require.NoError(t, repo.CreateLibrary(ctx, library))
	}
	hash, err := auth.HashPassword("ann-pw")
	require.NoError(t, err)
	require.NoError(t, repo.CreateUser(ctx, &models.User{Username: "ann", Password: hash, LibraryAccess: []string{"L1", "P1"}}))

	orig := readPassword
	readPassword = func(int) ([]byte, error) { return []byte("ann-pw"), nil }
	t.Cleanup(func() { readPassword = orig })

	out := &bytes.Buffer{}
	app := &App{Out: out, Server: server.URL, Session: filepath.Join(t.TempDir(), "session.json")}
	return &testEnv{app: app, out: out, repo: repo, blobs: blobs}
}

func writeJPEG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

func TestApp_login(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.app.Run(ctx, []string{"albums", "-library", "L1"})
	assert.ErrorContains(t, err, "not logged in")

	require.NoError(t, env.app.Run(ctx, []string{"login", "-user", "ann"}))
	assert.Contains(t, env.out.String(), "Logged in as ann")
	info, err := os.Stat(env.app.Session)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	readPassword = func(int) ([]byte, error) { return []byte("wrong"), nil }
	assert.ErrorContains(t, env.app.Run(ctx, []string{"login", "-user", "ann"}), "Incorrect password")

	assert.ErrorIs(t, env.app.Run(ctx, nil), errUsage)
	assert.ErrorIs(t, env.app.Run(ctx, []string{"dance"}), errUsage)
}

func TestApp_albums(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.app.Run(ctx, []string{"login", "-user", "ann"}))
	env.out.Reset()

	require.NoError(t, env.app.Run(ctx, []string{"create-album", "-library", "L1", "-name", "Summer Trip", "-date", "2024-07-01", "-public"}))
	assert.Contains(t, env.out.String(), "(summer-trip)")

	err := env.app.Run(ctx, []string{"create-album", "-library", "L1", "-name", "Summer Trip"})
	assert.ErrorContains(t, err, "already exists")

	env.out.Reset()
	require.NoError(t, env.app.Run(ctx, []string{"albums", "-library", "L1"}))
	assert.Contains(t, env.out.String(), "Summer Trip")
	assert.Contains(t, env.out.String(), "2024-07-01")
	assert.Contains(t, env.out.String(), "true")
}

func TestApp_upload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.app.Run(ctx, []string{"login", "-user", "ann"}))
	require.NoError(t, env.app.Run(ctx, []string{"create-album", "-library", "L1", "-name", "Trip"}))

	dir := t.TempDir()
	wide := writeJPEG(t, dir, "wide.jpg", 800, 500)
	small := writeJPEG(t, dir, "small.jpg", 120, 90)

	stored, err := env.repo.Library(ctx, "L1")
	require.NoError(t, err)
	albums, _ := stored.Albums()
	albumID := albums.Albums[0].ID

	require.NoError(t, env.app.Run(ctx, []string{"upload", "-library", "L1", "-album", albumID, wide, small}))
	assert.Contains(t, env.out.String(), "now has 2 photos")

	stored, err = env.repo.Library(ctx, "L1")
	require.NoError(t, err)
	albums, _ = stored.Albums()
	album := albums.Albums[0]
	require.Len(t, album.Photos, 2)
	require.NotNil(t, album.Cover)
	assert.Equal(t, album.Photos[0].ID, *album.Cover)
	assert.Equal(t, "ann", album.Photos[0].UploadedBy)

	thumb, err := env.blobs.Get(ctx, "thumb_"+album.Photos[0].ID)
	require.NoError(t, err)
	defer thumb.Body.Close()
	cfg, err := jpeg.DecodeConfig(thumb.Body)
	require.NoError(t, err)
	assert.Equal(t, thumbnailSize, cfg.Width)
	assert.Equal(t, thumbnailSize, cfg.Height)

	preview, err := env.blobs.Get(ctx, "preview_"+album.Photos[1].ID)
	require.NoError(t, err)
	defer preview.Body.Close()
	cfg, err = jpeg.DecodeConfig(preview.Body)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Width, "small images keep their size")

	require.NoError(t, env.app.Run(ctx, []string{"upload", "-library", "P1", wide}))
	stored, err = env.repo.Library(ctx, "P1")
	require.NoError(t, err)
	assert.Len(t, stored.Content.PhotoIDs(), 1)

	assert.ErrorContains(t, env.app.Run(ctx, []string{"upload", "-library", "L1", "-album", "nope", wide}), `album "nope" not found`)
	assert.ErrorContains(t, env.app.Run(ctx, []string{"upload", "-library", "L1"}), "at least one file")
	notImage := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("hello"), 0600))
	assert.Error(t, env.app.Run(ctx, []string{"upload", "-library", "L1", "-album", albumID, notImage}))
}
