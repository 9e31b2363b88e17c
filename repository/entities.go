package repository

import (
	"context"

	"patio/models"
)

func (r *Repository) User(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	if err := r.Get(ctx, KindUser, username, u); err != nil {
		if models.IsNotFound(err) {
			return nil, models.NotFoundf("User %q not found", username)
		}
		return nil, err
	}
	u.Normalize()
	return u, nil
}

func (r *Repository) PutUser(ctx context.Context, u *models.User) error {
	u.Normalize()
	return r.Put(ctx, KindUser, u.Username, u)
}

// CreateUser writes the user record, then indexes it in root.
func (r *Repository) CreateUser(ctx context.Context, u *models.User) error {
	if err := r.PutUser(ctx, u); err != nil {
		return err
	}
	root, err := r.Root(ctx)
	if err != nil {
		return err
	}
	root.AddUser(u.Username)
	return r.PutRoot(ctx, root)
}

// RemoveUser deletes the user record, then drops it from root.
func (r *Repository) RemoveUser(ctx context.Context, username string) error {
	if err := r.Delete(ctx, KindUser, username); err != nil {
		return err
	}
	root, err := r.Root(ctx)
	if err != nil {
		return err
	}
	root.RemoveUser(username)
	return r.PutRoot(ctx, root)
}

func (r *Repository) Library(ctx context.Context, id string) (*models.Library, error) {
	l := &models.Library{}
	if err := r.Get(ctx, KindLibrary, id, l); err != nil {
		if models.IsNotFound(err) {
			return nil, models.NotFoundf("Library %q not found", id)
		}
		return nil, err
	}
	return l, nil
}

func (r *Repository) PutLibrary(ctx context.Context, l *models.Library) error {
	return r.Put(ctx, KindLibrary, l.ID, l)
}

// CreateLibrary writes the library record, then indexes it in root.
func (r *Repository) CreateLibrary(ctx context.Context, l *models.Library) error {
	if err := r.PutLibrary(ctx, l); err != nil {
		return err
	}
	root, err := r.Root(ctx)
	if err != nil {
		return err
	}
	root.AddLibrary(l.ID)
	return r.PutRoot(ctx, root)
}

// RemoveLibrary deletes the library record, then drops it from root.
func (r *Repository) RemoveLibrary(ctx context.Context, id string) error {
	if err := r.Delete(ctx, KindLibrary, id); err != nil {
		return err
	}
	root, err := r.Root(ctx)
	if err != nil {
		return err
	}
	root.RemoveLibrary(id)
	return r.PutRoot(ctx, root)
}

// PhotoOwners maps every photo referenced by a library other than except to
// that library. Pass "" to scan every library.
func (r *Repository) PhotoOwners(ctx context.Context, except string) (map[string]string, error) {
	root, err := r.Root(ctx)
	if err != nil {
		return nil, err
	}
	owners := map[string]string{}
	for _, id := range root.Libraries {
		if id == except {
			continue
		}
		l, err := r.Library(ctx, id)
		if models.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, photoID := range l.Content.PhotoIDs() {
			owners[photoID] = id
		}
	}
	return owners, nil
}
