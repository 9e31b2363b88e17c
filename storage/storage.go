// Package storage is the blob store for photo variants. A photo is stored as
// three objects (original, thumbnail, preview) addressed by the photo id.
package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"hash"
	"io"
	"regexp"
	"strings"
)

type Size string

const (
	SizeOriginal  Size = "original"
	SizeThumbnail Size = "thumbnail"
	SizePreview   Size = "preview"
)

// CacheControlImmutable is served with every variant: object contents never change for an id.
const CacheControlImmutable = "public, max-age=604800, immutable"

// Sizes lists every variant in upload order.
var Sizes = []Size{SizeOriginal, SizeThumbnail, SizePreview}

var (
	ErrNotFound = errors.New("storage: object not found")
	ErrBadID    = errors.New("storage: invalid object id")

	validObjectID = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]*$`)
)

// ObjectID returns the object id holding the given variant of a photo.
// The second result is false for an unknown size.
func ObjectID(photoID string, size Size) (string, bool) {
	switch size {
	case SizeOriginal:
		return photoID, true
	case SizeThumbnail:
		return "thumb_" + photoID, true
	case SizePreview:
		return "preview_" + photoID, true
	}
	return "", false
}

// PhotoObjectIDs returns the ids of all three variants of a photo.
func PhotoObjectIDs(photoID string) []string {
	ids := make([]string, 0, len(Sizes))
	for _, size := range Sizes {
		id, _ := ObjectID(photoID, size)
		ids = append(ids, id)
	}
	return ids
}

type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	ETag        string // quoted, ready for the ETag header
}

type BlobStore interface {
	Put(ctx context.Context, id string, reader io.Reader, contentType string) error
	Get(ctx context.Context, id string) (*Object, error)
	// Delete removes all given objects. Missing objects are not an error.
	Delete(ctx context.Context, ids ...string) error
}

func checkID(id string) error {
	if !validObjectID.MatchString(id) {
		return ErrBadID
	}
	return nil
}

func quoteETag(sum []byte) string {
	return `"` + hex.EncodeToString(sum) + `"`
}

// md5Reader hashes everything read through it.
type md5Reader struct {
	reader io.Reader
	hash   hash.Hash
}

func newMD5Reader(r io.Reader) *md5Reader {
	h := md5.New()
	return &md5Reader{reader: io.TeeReader(r, h), hash: h}
}

func (r *md5Reader) Read(p []byte) (int, error) {
	return r.reader.Read(p)
}

func (r *md5Reader) ETag() string {
	return quoteETag(r.hash.Sum(nil))
}

// MatchesETag reports whether an If-None-Match header value matches etag.
func MatchesETag(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" || etag == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag || strings.Trim(candidate, `"`) == strings.Trim(etag, `"`) {
			return true
		}
	}
	return false
}
