package models

import (
	"slices"
	"time"
)

// Photo is the metadata of one uploaded image. The image itself lives in the
// blob store under the photo id and its variant prefixes.
type Photo struct {
	ID         string `json:"id" binding:"required"`
	UploadedBy string `json:"uploaded_by,omitempty"`
	UploadedAt string `json:"uploaded_at,omitempty"`
}

func (p Photo) Safe(admin bool) Photo {
	if !admin {
		p.UploadedBy = ""
		p.UploadedAt = ""
	}
	return p
}

func safePhotos(photos []Photo, admin bool) []Photo {
	out := make([]Photo, len(photos))
	for i, p := range photos {
		out[i] = p.Safe(admin)
	}
	return out
}

func containsPhoto(photos []Photo, id string) bool {
	return slices.ContainsFunc(photos, func(p Photo) bool { return p.ID == id })
}

// ReplacePhotos makes next the new photo list, in the order given. Entries
// without upload stamps get them from by and now. Photos of current that are
// missing from next are returned as removed. Repeated ids keep their first
// occurrence.
func ReplacePhotos(current, next []Photo, by string, now time.Time) (photos, removed []Photo, err error) {
	photos = make([]Photo, 0, len(next))
	seen := make(map[string]bool, len(next))
	stamp := Timestamp(now)
	for _, p := range next {
		if !ValidID(p.ID) {
			return nil, nil, Validationf("Invalid photo id %q", p.ID)
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		if p.UploadedBy == "" {
			p.UploadedBy = by
		}
		if p.UploadedAt == "" {
			p.UploadedAt = stamp
		}
		photos = append(photos, p)
	}
	for _, p := range current {
		if !seen[p.ID] {
			removed = append(removed, p)
		}
	}
	return photos, removed, nil
}
