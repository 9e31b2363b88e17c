package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"slices"
	"time"

	"patio/auth"
	"patio/models"
	"patio/processing"
	"patio/push"
	"patio/repository"
	"patio/storage"
	"patio/utils"

	"github.com/gin-gonic/gin"
)

// API holds what every handler needs. Handlers never keep state between
// requests: each one re-reads the records it works on.
type API struct {
	Repo   *repository.Repository
	Blobs  storage.BlobStore
	Tokens *auth.Tokens
	Hub    *push.Hub
	Now    func() time.Time
	NewID  func() string

	// Cleanup retries blob deletes that failed. Optional.
	Cleanup *processing.Queue
}

func New(repo *repository.Repository, blobs storage.BlobStore, tokens *auth.Tokens, hub *push.Hub) *API {
	return &API{
		Repo:   repo,
		Blobs:  blobs,
		Tokens: tokens,
		Hub:    hub,
		Now:    time.Now,
		NewID:  utils.RandomID,
	}
}

// Register adds every endpoint. base must be the same router authRouter wraps.
func (api *API) Register(base gin.IRouter, authRouter *auth.Router, loginLimit gin.HandlerFunc) {
	noCache := (&utils.CacheRouter{CacheTime: utils.CacheNoCache}).Handler()
	customCache := (&utils.CacheRouter{CacheTime: utils.CacheCustom}).Handler()

	base.POST("/login", noCache, loginLimit, api.Login)
	// User handlers
	authRouter.GET("/user", api.UserList, auth.RequireAdmin)
	authRouter.POST("/user", api.UserCreate, auth.RequireAdmin)
	authRouter.GET("/user/:username", api.UserGet, auth.RequireUser) // self or admin, checked in handler
	authRouter.PATCH("/user/:username", api.UserPatch, auth.RequireAdmin)
	authRouter.DELETE("/user/:username", api.UserDelete, auth.RequireAdmin)
	// Library handlers
	authRouter.GET("/library", api.LibraryGet)
	authRouter.GET("/library/watch", api.LibraryWatch)
	authRouter.POST("/library", api.LibraryCreate, auth.RequireAdmin)
	authRouter.PATCH("/library", api.LibraryPatch, auth.RequireUser)
	authRouter.DELETE("/library/:id", api.LibraryDelete, auth.RequireAdmin)
	// Album handlers, library access is checked in the handlers
	authRouter.POST("/album", api.AlbumCreate, auth.RequireUser)
	authRouter.PATCH("/album/:id", api.AlbumPatch, auth.RequireUser)
	authRouter.DELETE("/album/:id", api.AlbumDelete, auth.RequireUser)
	// Photo handlers
	authRouter.POST("/photo", api.PhotoUpload, auth.RequireUser)
	base.GET("/photo/:id", customCache, api.PhotoGet)
}

func statusOf(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation, models.KindConflict:
		return http.StatusBadRequest
	case models.KindAuthentication, models.KindAuthorization:
		return http.StatusUnauthorized
	case models.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// fail writes err as a plain text response
func fail(c *gin.Context, err error) {
	var e *models.Error
	if !errors.As(err, &e) {
		e = models.StorageError(c.Request.Method+" "+c.FullPath(), err).(*models.Error)
	}
	if e.Kind == models.KindStorage {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, e)
	}
	c.String(statusOf(e.Kind), e.Message)
}

func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return models.Validationf("Invalid request body: %v", err)
	}
	return nil
}

// ok is the empty 200 response of delete endpoints
func ok(c *gin.Context) {
	c.String(http.StatusOK, "")
}

// loadLibrary reads the library named by the "library" query parameter and
// reports whether the caller has full access to it.
func (api *API) loadLibrary(c *gin.Context, id *auth.Identity) (*models.Library, bool, error) {
	libraryID := c.Query("library")
	if !models.ValidID(libraryID) {
		return nil, false, models.Validationf(`Expected a valid "library" search parameter`)
	}
	l, err := api.Repo.Library(c.Request.Context(), libraryID)
	if err != nil {
		return nil, false, err
	}
	return l, id.CanRead(l.ID), nil
}

// writableLibrary is loadLibrary for mutations.
func (api *API) writableLibrary(c *gin.Context, id *auth.Identity) (*models.Library, error) {
	l, authorized, err := api.loadLibrary(c, id)
	if err != nil {
		return nil, err
	}
	if !authorized || !id.CanWrite(l.ID) {
		return nil, models.Authorizationf("Unauthorized to access library %q", l.ID)
	}
	return l, nil
}

// claimPhotos refuses photos that are new to l but already referenced by
// another library.
func (api *API) claimPhotos(ctx context.Context, l *models.Library, photos []models.Photo) error {
	current := l.Content.PhotoIDs()
	var added []string
	for _, p := range photos {
		if !slices.Contains(current, p.ID) {
			added = append(added, p.ID)
		}
	}
	if len(added) == 0 {
		return nil
	}
	owners, err := api.Repo.PhotoOwners(ctx, l.ID)
	if err != nil {
		return err
	}
	for _, photoID := range added {
		if _, taken := owners[photoID]; taken {
			return models.Conflictf("Photo %q belongs to another library", photoID)
		}
	}
	return nil
}

// saveLibrary writes the library, deletes the blobs of photos no library
// references anymore and tells watchers. The blob deletes outlive the request.
func (api *API) saveLibrary(ctx context.Context, l *models.Library, removed []models.Photo) error {
	if err := api.Repo.PutLibrary(ctx, l); err != nil {
		return err
	}
	api.deletePhotoBlobs(context.WithoutCancel(ctx), l, removed)
	api.notify(l.ID)
	return nil
}

func (api *API) deletePhotoBlobs(ctx context.Context, l *models.Library, photos []models.Photo) {
	referenced := map[string]bool{}
	for _, id := range l.Content.PhotoIDs() {
		referenced[id] = true
	}
	photos = slices.DeleteFunc(slices.Clone(photos), func(p models.Photo) bool { return referenced[p.ID] })
	if len(photos) == 0 {
		return
	}
	owners, err := api.Repo.PhotoOwners(ctx, l.ID)
	if err != nil {
		log.Printf("Keeping blobs of %d photos of library %s, reading other libraries: %v", len(photos), l.ID, err)
		return
	}
	for _, p := range photos {
		if referenced[p.ID] {
			continue
		}
		// a photo may be listed more than once
		referenced[p.ID] = true
		if owner, ok := owners[p.ID]; ok {
			log.Printf("Photo %s is still in library %s, keeping its blobs", p.ID, owner)
			continue
		}
		ids := storage.PhotoObjectIDs(p.ID)
		if err := api.Blobs.Delete(ctx, ids...); err != nil {
			log.Printf("Orphaned blobs %v of library %s: %v", ids, l.ID, err)
			if api.Cleanup != nil {
				api.Cleanup.Add(api.retryDelete(l.ID, p.ID))
			}
		}
	}
}

// retryDelete deletes the blobs of a photo unless some library references it
// again by the time the task runs.
func (api *API) retryDelete(libraryID, photoID string) processing.Task {
	return processing.NewTask("delete-blobs:"+photoID, func(ctx context.Context) error {
		owners, err := api.Repo.PhotoOwners(ctx, "")
		if err != nil {
			return err
		}
		if owner, ok := owners[photoID]; ok {
			log.Printf("Photo %s removed from library %s is in library %s again, keeping its blobs", photoID, libraryID, owner)
			return nil
		}
		return api.Blobs.Delete(ctx, storage.PhotoObjectIDs(photoID)...)
	})
}

func (api *API) notify(libraryID string) {
	if api.Hub != nil {
		api.Hub.Notify(libraryID, api.Now())
	}
}
