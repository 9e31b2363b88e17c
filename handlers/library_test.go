package handlers

import (
	"context"
	"net/http"
	"testing"

	"patio/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/library", "admin", gin.H{"id": "L1", "type": "albums"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/library?library=L1", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[models.LibraryView](t, w)
	assert.True(t, view.Authorized)
	assert.Equal(t, "L1", view.Library.ID)
	assert.True(t, view.Library.IsEmpty())
	assert.JSONEq(t, `{"id":"L1","type":"albums","created_by":"admin","created_at":"2024-05-17T10:30:00Z","authorized":true,"albums":[]}`, w.Body.String())
}

func TestLibraryCreate_errors(t *testing.T) {
	env := newTestEnv(t)
	env.createLibrary("L1", models.LibraryKindAlbums)

	tests := []struct {
		name string
		as   string
		body gin.H
		want int
	}{
		{"duplicate", "admin", gin.H{"id": "L1", "type": "albums"}, http.StatusBadRequest},
		{"bad id", "admin", gin.H{"id": "a b", "type": "albums"}, http.StatusBadRequest},
		{"bad type", "admin", gin.H{"id": "L9", "type": "videos"}, http.StatusBadRequest},
		{"missing id", "admin", gin.H{"type": "albums"}, http.StatusBadRequest},
		{"not admin", "ann", gin.H{"id": "L9", "type": "albums"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, env.do(http.MethodPost, "/library", tt.as, tt.body).Code)
		})
	}
	root, err := env.repo.Root(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, root.Libraries)
}

func TestLibraryGet_list(t *testing.T) {
	env := newTestEnv(t)
	env.createLibrary("L1", models.LibraryKindAlbums)
	env.createLibrary("L2", models.LibraryKindAlbums)

	tests := []struct {
		as   string
		want []string
	}{
		{"admin", []string{"L1", "L2"}},
		{"ann", []string{"L1"}},
		{"bob", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run("as "+tt.as, func(t *testing.T) {
			w := env.do(http.MethodGet, "/library", tt.as, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, decode[[]string](t, w))
		})
	}
}

func TestLibraryGet_publicView(t *testing.T) {
	env := newTestEnv(t)
	env.createLibrary("L1", models.LibraryKindAlbums)
	env.createAlbum("L1", gin.H{"name": "Open", "public": true})
	env.createAlbum("L1", gin.H{"name": "Closed"})

	for _, as := range []string{"bob", ""} {
		w := env.do(http.MethodGet, "/library?library=L1", as, nil)
		require.Equal(t, http.StatusOK, w.Code)
		view := decode[models.LibraryView](t, w)
		assert.False(t, view.Authorized)
		albums, err := view.Library.Albums()
		require.NoError(t, err)
		require.Len(t, albums.Albums, 1)
		assert.Equal(t, "Open", albums.Albums[0].Name)
		assert.NotContains(t, w.Body.String(), "created_by")
	}

	w := env.do(http.MethodGet, "/library?library=L1", "ann", nil)
	view := decode[models.LibraryView](t, w)
	assert.True(t, view.Authorized)
	albums, _ := view.Library.Albums()
	assert.Len(t, albums.Albums, 2)
}

func TestLibraryGet_errors(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/library?library=a/b", "admin", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/library?library=nope", "admin", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/library?library=nope", "", nil).Code)
}

func TestLibraryDelete(t *testing.T) {
	env := newTestEnv(t)
	env.createLibrary("L1", models.LibraryKindAlbums)
	env.createLibrary("L2", models.LibraryKindAlbums)
	env.createAlbum("L2", gin.H{"name": "Keep"})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/library/nope", "admin", nil).Code)
	}
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodDelete, "/library/L1", "ann", nil).Code)

	w := env.do(http.MethodDelete, "/library/L2", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Not allowed to delete library with albums", w.Body.String())

	w = env.do(http.MethodDelete, "/library/L1", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	root, err := env.repo.Root(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"L2"}, root.Libraries)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/library?library=L1", "admin", nil).Code)
}

func TestLibraryPatch(t *testing.T) {
	env := newTestEnv(t)
	env.createLibrary("P1", models.LibraryKindPhotos)
	env.createLibrary("L1", models.LibraryKindAlbums)
	env.putPhotoBlobs("p1", "p2")

	w := env.do(http.MethodPatch, "/library?library=P1", "ann", gin.H{"photos": []gin.H{{"id": "p1"}, {"id": "p2"}}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	l := decode[models.Library](t, w)
	assert.Equal(t, []string{"p1", "p2"}, l.Content.PhotoIDs())

	w = env.do(http.MethodPatch, "/library?library=P1", "ann", gin.H{"photos": []gin.H{{"id": "p2"}}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][]string{{"p1", "thumb_p1", "preview_p1"}}, env.blobs.deleted())
	assert.False(t, env.blobs.Has("thumb_p1"))
	assert.True(t, env.blobs.Has("p2"))

	stored, err := env.repo.Library(context.Background(), "P1")
	require.NoError(t, err)
	photos, err := stored.Photos()
	require.NoError(t, err)
	assert.Equal(t, "ann", photos.Photos[0].UploadedBy)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPatch, "/library?library=P1", "bob", gin.H{"photos": []gin.H{}}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPatch, "/library?library=L1", "ann", gin.H{"photos": []gin.H{}}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPatch, "/library?library=P1", "ann", gin.H{}).Code)
}

// Two writers that read the same library before either saves: the second save
// wins and the first album is lost. There is no concurrency token.
func TestLibrary_lastWriteWins(t *testing.T) {
	env := newTestEnv(t)
	env.createLibrary("L1", models.LibraryKindAlbums)
	ctx := context.Background()

	first, err := env.repo.Library(ctx, "L1")
	require.NoError(t, err)
	second, err := env.repo.Library(ctx, "L1")
	require.NoError(t, err)

	for i, l := range []*models.Library{first, second} {
		albums, err := l.Albums()
		require.NoError(t, err)
		name := []string{"First", "Second"}[i]
		_, err = albums.CreateAlbum(models.AlbumCreate{Name: name}, name, "admin", testNow)
		require.NoError(t, err)
		require.NoError(t, env.repo.PutLibrary(ctx, l))
	}

	stored, err := env.repo.Library(ctx, "L1")
	require.NoError(t, err)
	albums, _ := stored.Albums()
	require.Len(t, albums.Albums, 1)
	assert.Equal(t, "Second", albums.Albums[0].Name)
}

func TestLibraryPatch_photoOfAnotherLibrary(t *testing.T) {
	env := newTestEnv(t)
	env.createLibrary("P1", models.LibraryKindPhotos)
	env.createLibrary("P2", models.LibraryKindPhotos)
	env.putPhotoBlobs("shared")
	require.Equal(t, http.StatusOK, env.do(http.MethodPatch, "/library?library=P2", "admin", gin.H{"photos": []gin.H{{"id": "shared"}}}).Code)

	w := env.do(http.MethodPatch, "/library?library=P1", "ann", gin.H{"photos": []gin.H{{"id": "shared"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, env.blobs.Has("shared"))

	// keeping a photo the library already has is not a claim
	w = env.do(http.MethodPatch, "/library?library=P2", "admin", gin.H{"photos": []gin.H{{"id": "shared"}}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownLibrary_status(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/library?library=NOPE", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPatch, "/library?library=NOPE", "", gin.H{"photos": []gin.H{}}).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/album?library=NOPE", "", gin.H{"name": "Trip"}).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPatch, "/library?library=NOPE", "ann", gin.H{"photos": []gin.H{}}).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/album?library=NOPE", "ann", gin.H{"name": "Trip"}).Code)
}
