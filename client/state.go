package client

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"patio/models"
)

// LibraryService is the part of the API that LibraryState writes through.
type LibraryService interface {
	Library(ctx context.Context, libraryID string) (*models.LibraryView, error)
	CreateAlbum(ctx context.Context, libraryID string, in models.AlbumCreate) (*models.Album, error)
	PatchAlbum(ctx context.Context, libraryID, albumID string, in models.AlbumPatch) (*models.Album, error)
	DeleteAlbum(ctx context.Context, libraryID, albumID string) error
	PatchLibraryPhotos(ctx context.Context, libraryID string, photos []models.Photo) (*models.Library, error)
}

// LibraryState is a local copy of one library. Writes are applied to the copy
// first with the same rules the server uses, then sent. The server's answer
// replaces the optimistic result, and a failed call puts back what was there
// before.
type LibraryState struct {
	api LibraryService
	by  string
	Now func() time.Time

	mu         sync.Mutex
	library    *models.Library
	authorized bool
	pending    int
}

func NewLibraryState(api LibraryService, by string) *LibraryState {
	return &LibraryState{api: api, by: by, Now: time.Now}
}

// Load replaces the local copy with the server's.
func (s *LibraryState) Load(ctx context.Context, libraryID string) error {
	view, err := s.api.Library(ctx, libraryID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.library = view.Library
	s.authorized = view.Authorized
	s.mu.Unlock()
	return nil
}

// Library returns a copy of the current local state.
func (s *LibraryState) Library() (*models.Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.library == nil {
		return nil, fmt.Errorf("library not loaded")
	}
	return cloneLibrary(s.library)
}

func (s *LibraryState) Authorized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authorized
}

func cloneLibrary(l *models.Library) (*models.Library, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	out := &models.Library{}
	return out, json.Unmarshal(data, out)
}

func cloneAlbum(a models.Album) models.Album {
	a.Photos = slices.Clone(a.Photos)
	if a.Cover != nil {
		cover := *a.Cover
		a.Cover = &cover
	}
	return a
}

func albumIDs(c *models.AlbumsContent) []string {
	ids := make([]string, len(c.Albums))
	for i, a := range c.Albums {
		ids[i] = a.ID
	}
	return ids
}

// restoreOrder sorts the albums back into the order of ids. Albums added since
// keep their relative order after them.
func restoreOrder(c *models.AlbumsContent, ids []string) {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	rank := func(a models.Album) int {
		if p, ok := pos[a.ID]; ok {
			return p
		}
		return len(ids)
	}
	slices.SortStableFunc(c.Albums, func(a, b models.Album) int {
		return cmp.Compare(rank(a), rank(b))
	})
}

// albums must be called with s.mu held.
func (s *LibraryState) albums() (*models.AlbumsContent, error) {
	if s.library == nil {
		return nil, fmt.Errorf("library not loaded")
	}
	if !s.authorized {
		return nil, models.Authorizationf("Unauthorized to access library %q", s.library.ID)
	}
	return s.library.Albums()
}

// CreateAlbum adds the album locally under a placeholder id and swaps in the
// server's album once it answers.
func (s *LibraryState) CreateAlbum(ctx context.Context, in models.AlbumCreate) (models.Album, error) {
	s.mu.Lock()
	albums, err := s.albums()
	if err != nil {
		s.mu.Unlock()
		return models.Album{}, err
	}
	s.pending++
	placeholder := fmt.Sprintf("pending-%d", s.pending)
	if _, err := albums.CreateAlbum(in, placeholder, s.by, s.Now()); err != nil {
		s.mu.Unlock()
		return models.Album{}, err
	}
	libraryID := s.library.ID
	s.mu.Unlock()

	created, err := s.api.CreateAlbum(ctx, libraryID, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := albums.FindAlbum(placeholder)
	if err != nil {
		if i >= 0 {
			albums.Albums = slices.Delete(albums.Albums, i, i+1)
		}
		return models.Album{}, err
	}
	if i >= 0 {
		albums.Albums[i] = *created
	} else {
		albums.Albums = append(albums.Albums, *created)
	}
	return *created, nil
}

// PatchAlbum applies p locally, sends it and keeps the album the server
// returns. On failure the album goes back to its state before the call.
func (s *LibraryState) PatchAlbum(ctx context.Context, albumID string, p models.AlbumPatch) (models.Album, error) {
	s.mu.Lock()
	albums, err := s.albums()
	if err != nil {
		s.mu.Unlock()
		return models.Album{}, err
	}
	i := albums.FindAlbum(albumID)
	if i < 0 {
		s.mu.Unlock()
		return models.Album{}, models.NotFoundf("Album not found")
	}
	before := cloneAlbum(albums.Albums[i])
	order := albumIDs(albums)
	if _, _, err := albums.PatchAlbum(albumID, p, s.by, s.Now()); err != nil {
		s.mu.Unlock()
		return models.Album{}, err
	}
	libraryID := s.library.ID
	s.mu.Unlock()

	patched, err := s.api.PatchAlbum(ctx, libraryID, albumID, p)

	s.mu.Lock()
	defer s.mu.Unlock()
	i = albums.FindAlbum(albumID)
	if err != nil {
		if i >= 0 {
			albums.Albums[i] = before
		}
		restoreOrder(albums, order)
		return models.Album{}, err
	}
	if i >= 0 {
		albums.Albums[i] = *patched
	}
	return *patched, nil
}

// DeleteAlbum removes the album locally and restores it at its old position if
// the server refuses.
func (s *LibraryState) DeleteAlbum(ctx context.Context, albumID string) error {
	s.mu.Lock()
	albums, err := s.albums()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	pos := albums.FindAlbum(albumID)
	removed, err := albums.DeleteAlbum(albumID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	libraryID := s.library.ID
	s.mu.Unlock()

	err = s.api.DeleteAlbum(ctx, libraryID, albumID)
	if err == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if albums.FindAlbum(albumID) < 0 {
		albums.Albums = slices.Insert(albums.Albums, min(pos, len(albums.Albums)), removed)
	}
	return err
}

// ReplacePhotos sets the photo list of a photos library.
func (s *LibraryState) ReplacePhotos(ctx context.Context, next []models.Photo) ([]models.Photo, error) {
	s.mu.Lock()
	if s.library == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("library not loaded")
	}
	if !s.authorized {
		s.mu.Unlock()
		return nil, models.Authorizationf("Unauthorized to access library %q", s.library.ID)
	}
	photos, err := s.library.Photos()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	before := slices.Clone(photos.Photos)
	if _, err := photos.ReplacePhotos(next, s.by, s.Now()); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	libraryID := s.library.ID
	s.mu.Unlock()

	updated, err := s.api.PatchLibraryPhotos(ctx, libraryID, next)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		photos.Photos = before
		return nil, err
	}
	if server, err := updated.Photos(); err == nil {
		photos.Photos = server.Photos
	}
	return slices.Clone(photos.Photos), nil
}
