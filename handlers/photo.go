package handlers

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"

	"patio/auth"
	"patio/models"
	"patio/storage"

	"github.com/gin-gonic/gin"
)

const defaultContentType = "image/jpeg"

// PhotoUpload stores the three variants of a new photo and returns its
// metadata. The photo belongs to nothing until an album or library patch
// lists it. Every part is checked before anything is written, and a failed
// write removes the variants already stored.
func (api *API) PhotoUpload(c *gin.Context, id *auth.Identity) {
	files := make(map[storage.Size]*multipart.FileHeader, len(storage.Sizes))
	for _, size := range storage.Sizes {
		fh, err := c.FormFile(string(size))
		if err != nil {
			fail(c, models.Validationf("Expected %q to be a File", size))
			return
		}
		files[size] = fh
	}

	ctx := c.Request.Context()
	photoID := api.NewID()
	written := make([]string, 0, len(storage.Sizes))
	for _, size := range storage.Sizes {
		objectID, _ := storage.ObjectID(photoID, size)
		if err := api.putFile(c, objectID, files[size]); err != nil {
			if len(written) > 0 {
				if derr := api.Blobs.Delete(ctx, written...); derr != nil {
					log.Printf("Orphaned blobs %v after failed upload: %v", written, derr)
				}
			}
			fail(c, models.StorageError("put "+objectID, err))
			return
		}
		written = append(written, objectID)
	}

	photo := models.Photo{
		ID:         photoID,
		UploadedBy: id.Name(),
		UploadedAt: models.Timestamp(api.Now()),
	}
	c.JSON(http.StatusOK, photo.Safe(id.IsAdmin()))
}

func (api *API) putFile(c *gin.Context, objectID string, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	return api.Blobs.Put(c.Request.Context(), objectID, f, contentType)
}

// PhotoGet serves one variant of a photo. Access to photos is not checked,
// ids are random and only reachable through a readable album or library.
func (api *API) PhotoGet(c *gin.Context) {
	objectID, valid := storage.ObjectID(c.Param("id"), storage.Size(c.Query("size")))
	if !valid {
		fail(c, models.Validationf(`Expected a valid "size" search parameter`))
		return
	}
	obj, err := api.Blobs.Get(c.Request.Context(), objectID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fail(c, models.NotFoundf("Photo not found"))
		return
	case errors.Is(err, storage.ErrBadID):
		fail(c, models.Validationf("Invalid photo id"))
		return
	case err != nil:
		fail(c, models.StorageError("get "+objectID, err))
		return
	}
	defer obj.Body.Close()

	c.Header("Cache-Control", storage.CacheControlImmutable)
	if obj.ETag != "" {
		c.Header("ETag", obj.ETag)
		if storage.MatchesETag(c.GetHeader("If-None-Match"), obj.ETag) {
			c.Status(http.StatusNotModified)
			return
		}
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	c.DataFromReader(http.StatusOK, obj.Size, contentType, obj.Body, nil)
}
