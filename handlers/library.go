package handlers

import (
	"net/http"

	"patio/auth"
	"patio/models"

	"github.com/gin-gonic/gin"
)

// LibraryGet lists the ids of the libraries the caller can access, or returns
// one library when the "library" query parameter is set. Callers without
// access to that library only see its public albums.
func (api *API) LibraryGet(c *gin.Context, id *auth.Identity) {
	if c.Query("library") == "" {
		root, err := api.Repo.Root(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		result := []string{}
		for _, l := range root.Libraries {
			if id.CanRead(l) {
				result = append(result, l)
			}
		}
		c.JSON(http.StatusOK, result)
		return
	}
	l, authorized, err := api.loadLibrary(c, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.LibraryView{
		Library:    l.Safe(id.IsAdmin(), authorized),
		Authorized: authorized,
	})
}

func (api *API) LibraryCreate(c *gin.Context, id *auth.Identity) {
	req := models.LibraryCreate{}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	kind, err := models.ParseLibraryKind(req.Type)
	if err != nil {
		fail(c, err)
		return
	}
	l, err := models.NewLibrary(req.ID, kind, id.Name(), api.Now())
	if err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := api.Repo.Library(ctx, l.ID); err == nil {
		fail(c, models.Conflictf("Library %q already exists", l.ID))
		return
	} else if !models.IsNotFound(err) {
		fail(c, err)
		return
	}
	if err := api.Repo.CreateLibrary(ctx, l); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l.Safe(true, true))
}

// LibraryPatch replaces the photo list of a photos library.
func (api *API) LibraryPatch(c *gin.Context, id *auth.Identity) {
	l, err := api.writableLibrary(c, id)
	if err != nil {
		fail(c, err)
		return
	}
	photos, err := l.Photos()
	if err != nil {
		fail(c, err)
		return
	}
	req := models.LibraryPatch{}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if err := api.claimPhotos(c.Request.Context(), l, *req.Photos); err != nil {
		fail(c, err)
		return
	}
	removed, err := photos.ReplacePhotos(*req.Photos, id.Name(), api.Now())
	if err != nil {
		fail(c, err)
		return
	}
	if err := api.saveLibrary(c.Request.Context(), l, removed); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l.Safe(id.IsAdmin(), true))
}

// LibraryDelete removes an empty library
func (api *API) LibraryDelete(c *gin.Context, id *auth.Identity) {
	libraryID := c.Param("id")
	if !models.ValidID(libraryID) {
		fail(c, models.Validationf("Invalid library id %q", libraryID))
		return
	}
	ctx := c.Request.Context()
	l, err := api.Repo.Library(ctx, libraryID)
	if err != nil {
		fail(c, err)
		return
	}
	if !l.IsEmpty() {
		fail(c, models.Validationf("Not allowed to delete library with %s", l.Kind()))
		return
	}
	if err := api.Repo.RemoveLibrary(ctx, libraryID); err != nil {
		fail(c, err)
		return
	}
	api.notify(libraryID)
	ok(c)
}
