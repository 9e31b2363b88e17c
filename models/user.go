package models

import "slices"

type User struct {
	Username      string   `json:"username"`
	Password      string   `json:"password,omitempty"`
	LibraryAccess []string `json:"library_access"`
	AdminAccess   bool     `json:"admin_access"`
	CreatedBy     string   `json:"created_by,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
}

// UserCreate is the body of POST /user.
type UserCreate struct {
	Username      string   `json:"username" binding:"required"`
	Password      string   `json:"password" binding:"required"`
	LibraryAccess []string `json:"library_access"`
	AdminAccess   bool     `json:"admin_access"`
}

// UserPatch is the body of PATCH /user/:username. Absent fields are kept.
type UserPatch struct {
	Password      *string   `json:"password,omitempty"`
	LibraryAccess *[]string `json:"library_access,omitempty"`
	AdminAccess   *bool     `json:"admin_access,omitempty"`
}

func (u *User) HasLibrary(id string) bool {
	return slices.Contains(u.LibraryAccess, id)
}

// Normalize replaces nil lists so the record always encodes as arrays.
func (u *User) Normalize() {
	if u.LibraryAccess == nil {
		u.LibraryAccess = []string{}
	}
}

// Safe returns a copy without the password hash. Audit fields are kept only
// for admins.
func (u User) Safe(admin bool) User {
	u.Password = ""
	u.LibraryAccess = slices.Clone(u.LibraryAccess)
	if u.LibraryAccess == nil {
		u.LibraryAccess = []string{}
	}
	if !admin {
		u.CreatedBy = ""
		u.CreatedAt = ""
	}
	return u
}
