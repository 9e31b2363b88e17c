package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"io"

	cmap "github.com/orcaman/concurrent-map/v2"
)

type memoryObject struct {
	data        []byte
	contentType string
	etag        string
}

// MemoryStore keeps objects in process memory. Used in tests and with BLOB_BACKEND=memory.
type MemoryStore struct {
	objects cmap.ConcurrentMap[string, memoryObject]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: cmap.New[memoryObject]()}
}

func (s *MemoryStore) Put(ctx context.Context, id string, reader io.Reader, contentType string) error {
	if err := checkID(id); err != nil {
		return err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	sum := md5.Sum(data)
	s.objects.Set(id, memoryObject{
		data:        data,
		contentType: contentType,
		etag:        quoteETag(sum[:]),
	})
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Object, error) {
	o, ok := s.objects.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &Object{
		Body:        io.NopCloser(bytes.NewReader(o.data)),
		Size:        int64(len(o.data)),
		ContentType: o.contentType,
		ETag:        o.etag,
	}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		s.objects.Remove(id)
	}
	return nil
}

func (s *MemoryStore) Has(id string) bool {
	return s.objects.Has(id)
}

func (s *MemoryStore) Count() int {
	return s.objects.Count()
}
