package handlers

import (
	"net/http"

	"patio/auth"
	"patio/models"

	"github.com/gin-gonic/gin"
)

func (api *API) AlbumCreate(c *gin.Context, id *auth.Identity) {
	l, err := api.writableLibrary(c, id)
	if err != nil {
		fail(c, err)
		return
	}
	albums, err := l.Albums()
	if err != nil {
		fail(c, err)
		return
	}
	req := models.AlbumCreate{}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	album, err := albums.CreateAlbum(req, api.NewID(), id.Name(), api.Now())
	if err != nil {
		fail(c, err)
		return
	}
	if err := api.saveLibrary(c.Request.Context(), l, nil); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, album.Safe(id.IsAdmin()))
}

// AlbumPatch updates an album. Photos dropped from its list are deleted once
// the library is saved.
func (api *API) AlbumPatch(c *gin.Context, id *auth.Identity) {
	l, err := api.writableLibrary(c, id)
	if err != nil {
		fail(c, err)
		return
	}
	albums, err := l.Albums()
	if err != nil {
		fail(c, err)
		return
	}
	req := models.AlbumPatch{}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.Photos != nil {
		if err := api.claimPhotos(c.Request.Context(), l, *req.Photos); err != nil {
			fail(c, err)
			return
		}
	}
	album, removed, err := albums.PatchAlbum(c.Param("id"), req, id.Name(), api.Now())
	if err != nil {
		fail(c, err)
		return
	}
	if err := api.saveLibrary(c.Request.Context(), l, removed); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, album.Safe(id.IsAdmin()))
}

// AlbumDelete removes an album and every photo in it
func (api *API) AlbumDelete(c *gin.Context, id *auth.Identity) {
	l, err := api.writableLibrary(c, id)
	if err != nil {
		fail(c, err)
		return
	}
	albums, err := l.Albums()
	if err != nil {
		fail(c, err)
		return
	}
	album, err := albums.DeleteAlbum(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := api.saveLibrary(c.Request.Context(), l, album.Photos); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}
