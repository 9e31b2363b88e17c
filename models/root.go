package models

import "slices"

// Root is the index of every user and library id.
type Root struct {
	Users     []string `json:"users"`
	Libraries []string `json:"libraries"`
}

func (r *Root) AddUser(username string) {
	if !slices.Contains(r.Users, username) {
		r.Users = append(r.Users, username)
	}
}

func (r *Root) RemoveUser(username string) {
	r.Users = slices.DeleteFunc(r.Users, func(u string) bool { return u == username })
}

func (r *Root) HasUser(username string) bool {
	return slices.Contains(r.Users, username)
}

func (r *Root) AddLibrary(id string) {
	if !slices.Contains(r.Libraries, id) {
		r.Libraries = append(r.Libraries, id)
	}
}

func (r *Root) RemoveLibrary(id string) {
	r.Libraries = slices.DeleteFunc(r.Libraries, func(l string) bool { return l == id })
}

// Normalize replaces nil lists so the record always encodes as arrays.
func (r *Root) Normalize() {
	if r.Users == nil {
		r.Users = []string{}
	}
	if r.Libraries == nil {
		r.Libraries = []string{}
	}
}
