package models

import (
	"encoding/json"
	"time"
)

type LibraryKind string

const (
	LibraryKindAlbums LibraryKind = "albums"
	LibraryKindPhotos LibraryKind = "photos"
)

// ParseLibraryKind accepts "albums" or "photos". An empty kind means albums,
// which is what records written before the kind existed contain.
func ParseLibraryKind(s string) (LibraryKind, error) {
	switch LibraryKind(s) {
	case "", LibraryKindAlbums:
		return LibraryKindAlbums, nil
	case LibraryKindPhotos:
		return LibraryKindPhotos, nil
	}
	return "", Validationf("Invalid library type %q", s)
}

// LibraryContent is either *AlbumsContent or *PhotosContent.
type LibraryContent interface {
	Kind() LibraryKind
	Len() int
	// PhotoIDs lists every photo the content references.
	PhotoIDs() []string
	safe(admin, authorized bool) LibraryContent
}

type AlbumsContent struct {
	Albums []Album
}

func (*AlbumsContent) Kind() LibraryKind { return LibraryKindAlbums }
func (c *AlbumsContent) Len() int        { return len(c.Albums) }

func (c *AlbumsContent) PhotoIDs() []string {
	var ids []string
	for _, a := range c.Albums {
		for _, p := range a.Photos {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (c *AlbumsContent) safe(admin, authorized bool) LibraryContent {
	out := &AlbumsContent{Albums: []Album{}}
	for _, a := range c.Albums {
		if authorized || a.Public {
			out.Albums = append(out.Albums, a.Safe(admin))
		}
	}
	return out
}

type PhotosContent struct {
	Photos []Photo
}

func (*PhotosContent) Kind() LibraryKind { return LibraryKindPhotos }
func (c *PhotosContent) Len() int        { return len(c.Photos) }

func (c *PhotosContent) PhotoIDs() []string {
	ids := make([]string, len(c.Photos))
	for i, p := range c.Photos {
		ids[i] = p.ID
	}
	return ids
}

func (c *PhotosContent) safe(admin, authorized bool) LibraryContent {
	if !authorized {
		return &PhotosContent{Photos: []Photo{}}
	}
	return &PhotosContent{Photos: safePhotos(c.Photos, admin)}
}

// ReplacePhotos sets the photo list and returns the photos that were dropped.
func (c *PhotosContent) ReplacePhotos(next []Photo, by string, now time.Time) ([]Photo, error) {
	photos, removed, err := ReplacePhotos(c.Photos, next, by, now)
	if err != nil {
		return nil, err
	}
	c.Photos = photos
	return removed, nil
}

type Library struct {
	ID        string
	CreatedBy string
	CreatedAt string
	Content   LibraryContent
}

// LibraryCreate is the body of POST /library.
type LibraryCreate struct {
	ID   string `json:"id" binding:"required"`
	Type string `json:"type"`
}

// LibraryPatch is the body of PATCH /library.
type LibraryPatch struct {
	Photos *[]Photo `json:"photos,omitempty" binding:"required,dive"`
}

func NewLibrary(id string, kind LibraryKind, by string, now time.Time) (*Library, error) {
	if !ValidID(id) {
		return nil, Validationf("Invalid library id %q", id)
	}
	l := &Library{ID: id, CreatedBy: by, CreatedAt: Timestamp(now)}
	switch kind {
	case LibraryKindAlbums:
		l.Content = &AlbumsContent{Albums: []Album{}}
	case LibraryKindPhotos:
		l.Content = &PhotosContent{Photos: []Photo{}}
	default:
		return nil, Validationf("Invalid library type %q", kind)
	}
	return l, nil
}

func (l *Library) Kind() LibraryKind {
	return l.Content.Kind()
}

func (l *Library) IsEmpty() bool {
	return l.Content.Len() == 0
}

// Albums returns the album list, or a validation error for a photos library.
func (l *Library) Albums() (*AlbumsContent, error) {
	c, ok := l.Content.(*AlbumsContent)
	if !ok {
		return nil, Validationf("Library %q is not of type %q", l.ID, LibraryKindAlbums)
	}
	return c, nil
}

// Photos returns the photo list, or a validation error for an albums library.
func (l *Library) Photos() (*PhotosContent, error) {
	c, ok := l.Content.(*PhotosContent)
	if !ok {
		return nil, Validationf("Library %q is not of type %q", l.ID, LibraryKindPhotos)
	}
	return c, nil
}

// Safe returns a copy fit for a caller. Callers without access to the library
// only see its public albums. Audit fields are kept only for admins.
func (l *Library) Safe(admin, authorized bool) *Library {
	out := &Library{ID: l.ID, Content: l.Content.safe(admin, authorized)}
	if admin {
		out.CreatedBy = l.CreatedBy
		out.CreatedAt = l.CreatedAt
	}
	return out
}

type libraryJSON struct {
	ID         string      `json:"id"`
	Type       LibraryKind `json:"type"`
	CreatedBy  string      `json:"created_by,omitempty"`
	CreatedAt  string      `json:"created_at,omitempty"`
	Authorized *bool       `json:"authorized,omitempty"`
	Albums     *[]Album    `json:"albums,omitempty"`
	Photos     *[]Photo    `json:"photos,omitempty"`
}

func (l *Library) toJSON() libraryJSON {
	out := libraryJSON{ID: l.ID, CreatedBy: l.CreatedBy, CreatedAt: l.CreatedAt}
	switch c := l.Content.(type) {
	case *AlbumsContent:
		albums := c.Albums
		if albums == nil {
			albums = []Album{}
		}
		out.Type = LibraryKindAlbums
		out.Albums = &albums
	case *PhotosContent:
		photos := c.Photos
		if photos == nil {
			photos = []Photo{}
		}
		out.Type = LibraryKindPhotos
		out.Photos = &photos
	}
	return out
}

func (l Library) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.toJSON())
}

func (l *Library) UnmarshalJSON(b []byte) error {
	var raw libraryJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	kind, err := ParseLibraryKind(string(raw.Type))
	if err != nil {
		return err
	}
	l.ID = raw.ID
	l.CreatedBy = raw.CreatedBy
	l.CreatedAt = raw.CreatedAt
	switch kind {
	case LibraryKindAlbums:
		c := &AlbumsContent{Albums: []Album{}}
		if raw.Albums != nil {
			c.Albums = *raw.Albums
		}
		for i := range c.Albums {
			c.Albums[i].Normalize()
		}
		l.Content = c
	case LibraryKindPhotos:
		c := &PhotosContent{Photos: []Photo{}}
		if raw.Photos != nil && *raw.Photos != nil {
			c.Photos = *raw.Photos
		}
		l.Content = c
	}
	return nil
}

// LibraryView is a library as returned by GET /library?library=, with the
// caller's access flag.
type LibraryView struct {
	Library    *Library
	Authorized bool
}

func (v LibraryView) MarshalJSON() ([]byte, error) {
	out := v.Library.toJSON()
	out.Authorized = &v.Authorized
	return json.Marshal(out)
}

func (v *LibraryView) UnmarshalJSON(b []byte) error {
	var flag struct {
		Authorized bool `json:"authorized"`
	}
	if err := json.Unmarshal(b, &flag); err != nil {
		return err
	}
	v.Library = &Library{}
	v.Authorized = flag.Authorized
	return v.Library.UnmarshalJSON(b)
}
