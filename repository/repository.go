// Package repository stores users, libraries and the root index as JSON
// documents in a kv.Store. Keys are "{kind}-{id}" plus the single "root" key.
//
// Multi-record updates such as adding a user and indexing it in root are two
// sequential writes with no rollback. A failure in between leaves root out of
// sync with the records it indexes.
package repository

import (
	"context"
	"encoding/json"
	"errors"

	"patio/kv"
	"patio/models"
)

type Kind string

const (
	KindUser    Kind = "user"
	KindLibrary Kind = "library"

	RootKey = "root"
)

func Key(kind Kind, id string) string {
	return string(kind) + "-" + id
}

type Repository struct {
	store kv.Store
}

func New(store kv.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) load(ctx context.Context, key string, v any) error {
	data, err := r.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return err
	}
	if err != nil {
		return models.StorageError("get "+key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return models.StorageError("decode "+key, err)
	}
	return nil
}

func (r *Repository) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return models.StorageError("encode "+key, err)
	}
	if err := r.store.Put(ctx, key, data); err != nil {
		return models.StorageError("put "+key, err)
	}
	return nil
}

// Get decodes the record of the given kind and id into v.
func (r *Repository) Get(ctx context.Context, kind Kind, id string, v any) error {
	err := r.load(ctx, Key(kind, id), v)
	if errors.Is(err, kv.ErrNotFound) {
		return models.NotFoundf("%s not found", kind)
	}
	return err
}

func (r *Repository) Put(ctx context.Context, kind Kind, id string, v any) error {
	return r.save(ctx, Key(kind, id), v)
}

func (r *Repository) Delete(ctx context.Context, kind Kind, id string) error {
	if err := r.store.Delete(ctx, Key(kind, id)); err != nil {
		return models.StorageError("delete "+Key(kind, id), err)
	}
	return nil
}

// Root returns the index. A missing root record is an empty index.
func (r *Repository) Root(ctx context.Context) (*models.Root, error) {
	root := &models.Root{}
	if err := r.load(ctx, RootKey, root); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return nil, err
	}
	root.Normalize()
	return root, nil
}

func (r *Repository) PutRoot(ctx context.Context, root *models.Root) error {
	root.Normalize()
	return r.save(ctx, RootKey, root)
}
