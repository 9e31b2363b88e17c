package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// diskMeta is kept next to every object as "<id>.meta".
type diskMeta struct {
	ContentType string `json:"content_type"`
	ETag        string `json:"etag"`
	Size        int64  `json:"size"`
}

type DiskStorage struct {
	// BasePath is a directory (usually mount point of a disk) that is writable by the current process
	BasePath string
	dirOnce  sync.Once
	dirErr   error
}

func NewDiskStorage(basePath string) *DiskStorage {
	return &DiskStorage{BasePath: basePath}
}

func (s *DiskStorage) createDir() error {
	s.dirOnce.Do(func() {
		s.dirErr = os.MkdirAll(s.BasePath, 0777)
	})
	return s.dirErr
}

func (s *DiskStorage) getFullPath(id string) string {
	return filepath.Join(s.BasePath, id)
}

func (s *DiskStorage) Put(ctx context.Context, id string, reader io.Reader, contentType string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := s.createDir(); err != nil {
		return err
	}
	fileName := s.getFullPath(id)
	// Write to a temp file first so a failed upload never replaces a good object
	tmp, err := os.CreateTemp(s.BasePath, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	hashed := newMD5Reader(reader)
	size, err := io.Copy(tmp, hashed)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	meta, err := json.Marshal(diskMeta{ContentType: contentType, ETag: hashed.ETag(), Size: size})
	if err != nil {
		return err
	}
	if err = os.WriteFile(fileName+".meta", meta, 0666); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fileName)
}

func (s *DiskStorage) Get(ctx context.Context, id string) (*Object, error) {
	if err := checkID(id); err != nil {
		return nil, ErrNotFound
	}
	fileName := s.getFullPath(id)
	file, err := os.Open(fileName)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	meta := diskMeta{}
	if data, err := os.ReadFile(fileName + ".meta"); err == nil {
		if err := json.Unmarshal(data, &meta); err != nil {
			log.Printf("Storage: ignoring corrupt %s.meta: %v", id, err)
			meta = diskMeta{}
		}
	}
	if meta.Size == 0 {
		if fi, err := file.Stat(); err == nil {
			meta.Size = fi.Size()
		}
	}
	return &Object{
		Body:        file,
		Size:        meta.Size,
		ContentType: meta.ContentType,
		ETag:        meta.ETag,
	}, nil
}

func (s *DiskStorage) Delete(ctx context.Context, ids ...string) error {
	var result error
	for _, id := range ids {
		if checkID(id) != nil {
			continue
		}
		fileName := s.getFullPath(id)
		for _, name := range []string{fileName, fileName + ".meta"} {
			if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
				log.Printf("Storage: cannot delete %s: %v", name, err)
				result = errors.Join(result, err)
			}
		}
	}
	return result
}
