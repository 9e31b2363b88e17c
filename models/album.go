package models

import (
	"bytes"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"time"
)

type Album struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	Cover     *string `json:"cover"`
	Public    bool    `json:"public"`
	Date      string  `json:"date"`
	CreatedBy string  `json:"created_by,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	Photos    []Photo `json:"photos"`
}

// AlbumCreate is the body of POST /album.
type AlbumCreate struct {
	Name   string  `json:"name" binding:"required"`
	Slug   *string `json:"slug,omitempty"`
	Public bool    `json:"public"`
	Date   *string `json:"date,omitempty"`
}

// AlbumPatch is the body of PATCH /album/:id. Absent fields are kept.
type AlbumPatch struct {
	Name   *string    `json:"name,omitempty"`
	Slug   *string    `json:"slug,omitempty"`
	Cover  NullString `json:"cover"`
	Public *bool      `json:"public,omitempty"`
	Date   *string    `json:"date,omitempty"`
	Photos *[]Photo   `json:"photos,omitempty" binding:"omitempty,dive"`
}

// MarshalJSON leaves cover out unless it was set.
func (p AlbumPatch) MarshalJSON() ([]byte, error) {
	type plain AlbumPatch
	return json.Marshal(struct {
		plain
		Cover *NullString `json:"cover,omitempty"`
	}{plain: plain(p), Cover: p.Cover.ptr()})
}

// NullString tells apart an absent field, an explicit null and a value.
type NullString struct {
	Set   bool
	Valid bool
	Value string
}

func NullStringOf(s string) NullString {
	return NullString{Set: true, Valid: true, Value: s}
}

func (n *NullString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(b, []byte("null")) {
		n.Valid = false
		n.Value = ""
		return nil
	}
	n.Valid = true
	return json.Unmarshal(b, &n.Value)
}

func (n NullString) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n NullString) ptr() *NullString {
	if !n.Set {
		return nil
	}
	return &n
}

func (a *Album) HasPhoto(id string) bool {
	return containsPhoto(a.Photos, id)
}

// Normalize replaces nil lists and drops a cover that is not in the album.
func (a *Album) Normalize() {
	if a.Photos == nil {
		a.Photos = []Photo{}
	}
	if a.Cover != nil && !a.HasPhoto(*a.Cover) {
		a.Cover = nil
	}
}

func (a Album) Safe(admin bool) Album {
	if !admin {
		a.CreatedBy = ""
		a.CreatedAt = ""
	}
	a.Photos = safePhotos(a.Photos, admin)
	if a.Cover != nil {
		cover := *a.Cover
		a.Cover = &cover
	}
	return a
}

func (a *Album) date() time.Time {
	t, _ := ParseDate(a.Date)
	return t
}

// FindAlbum returns the index of the album with the given id, or -1.
func (c *AlbumsContent) FindAlbum(id string) int {
	return slices.IndexFunc(c.Albums, func(a Album) bool { return a.ID == id })
}

func (c *AlbumsContent) checkUnique(name, slug, exceptID string) error {
	for _, a := range c.Albums {
		if a.ID == exceptID {
			continue
		}
		if name != "" && a.Name == name {
			return Conflictf("Album with name %q already exists", name)
		}
		if slug != "" && a.Slug == slug {
			return Conflictf("Album with slug %q already exists", slug)
		}
	}
	return nil
}

func validSlug(slug string) error {
	if slug == "" || CreateSlug(slug) != slug {
		return Validationf("Invalid slug %q", slug)
	}
	return nil
}

func validDate(date string) error {
	_, err := ParseDate(date)
	return err
}

// CreateAlbum adds a new album with the given id and sorts the albums by date,
// oldest first.
func (c *AlbumsContent) CreateAlbum(in AlbumCreate, id, by string, now time.Time) (Album, error) {
	album := Album{
		ID:        id,
		Name:      CleanName(in.Name),
		Public:    in.Public,
		Date:      now.UTC().Format(DateLayout),
		CreatedBy: by,
		CreatedAt: Timestamp(now),
		Photos:    []Photo{},
	}
	if album.Name == "" {
		return Album{}, Validationf("Album name is required")
	}
	if in.Slug != nil {
		album.Slug = *in.Slug
		if err := validSlug(album.Slug); err != nil {
			return Album{}, err
		}
	} else {
		album.Slug = CreateSlug(album.Name)
		if album.Slug == "" {
			album.Slug = strings.ToLower(id)
		}
	}
	if in.Date != nil {
		if err := validDate(*in.Date); err != nil {
			return Album{}, err
		}
		album.Date = *in.Date
	}
	if err := c.checkUnique(album.Name, album.Slug, ""); err != nil {
		return Album{}, err
	}
	c.Albums = append(c.Albums, album)
	sort.SliceStable(c.Albums, func(i, j int) bool {
		return c.Albums[i].date().Before(c.Albums[j].date())
	})
	return album, nil
}

// PatchAlbum applies p to the album with the given id and sorts the albums by
// date, newest first. It returns the updated album and the photos that were
// dropped from it.
func (c *AlbumsContent) PatchAlbum(id string, p AlbumPatch, by string, now time.Time) (Album, []Photo, error) {
	i := c.FindAlbum(id)
	if i < 0 {
		return Album{}, nil, NotFoundf("Album not found")
	}
	album := c.Albums[i]
	album.Photos = slices.Clone(album.Photos)

	var newName, newSlug string
	if p.Name != nil {
		newName = CleanName(*p.Name)
		if newName == "" {
			return Album{}, nil, Validationf("Album name is required")
		}
		album.Name = newName
	}
	if p.Slug != nil {
		if err := validSlug(*p.Slug); err != nil {
			return Album{}, nil, err
		}
		newSlug = *p.Slug
		album.Slug = newSlug
	}
	if err := c.checkUnique(newName, newSlug, id); err != nil {
		return Album{}, nil, err
	}
	if p.Public != nil {
		album.Public = *p.Public
	}
	if p.Date != nil {
		if err := validDate(*p.Date); err != nil {
			return Album{}, nil, err
		}
		album.Date = *p.Date
	}

	var removed []Photo
	if p.Photos != nil {
		photos, gone, err := ReplacePhotos(album.Photos, *p.Photos, by, now)
		if err != nil {
			return Album{}, nil, err
		}
		album.Photos = photos
		removed = gone
	}
	if p.Cover.Set {
		switch {
		case !p.Cover.Valid || p.Cover.Value == "":
			album.Cover = nil
		case album.HasPhoto(p.Cover.Value):
			cover := p.Cover.Value
			album.Cover = &cover
		}
	}
	album.Normalize()

	c.Albums[i] = album
	sort.SliceStable(c.Albums, func(i, j int) bool {
		return c.Albums[i].date().After(c.Albums[j].date())
	})
	return album, removed, nil
}

// DeleteAlbum removes the album with the given id and returns it.
func (c *AlbumsContent) DeleteAlbum(id string) (Album, error) {
	i := c.FindAlbum(id)
	if i < 0 {
		return Album{}, NotFoundf("Album not found")
	}
	album := c.Albums[i]
	c.Albums = slices.Delete(c.Albums, i, i+1)
	return album, nil
}
