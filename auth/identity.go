package auth

import (
	"context"
	"crypto/subtle"
	"slices"
	"strings"

	"patio/models"
)

const AdminUsername = "admin"

// Identity is the resolved caller of a request. A nil *Identity is an
// anonymous caller and every method is safe to call on it.
type Identity struct {
	Username  string
	Admin     bool
	Libraries []string
	// User is the stored record, nil for the shared admin secret.
	User *models.User
}

func IdentityOf(u *models.User) *Identity {
	return &Identity{
		Username:  u.Username,
		Admin:     u.AdminAccess,
		Libraries: slices.Clone(u.LibraryAccess),
		User:      u,
	}
}

func (i *Identity) Authenticated() bool {
	return i != nil
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Admin
}

func (i *Identity) Name() string {
	if i == nil {
		return ""
	}
	return i.Username
}

// CanRead reports whether the caller has full access to a library. Anonymous
// callers still get the public albums of any library.
func (i *Identity) CanRead(libraryID string) bool {
	if i == nil {
		return false
	}
	return i.Admin || slices.Contains(i.Libraries, libraryID)
}

// CanWrite is the same grant as CanRead.
func (i *Identity) CanWrite(libraryID string) bool {
	return i.CanRead(libraryID)
}

type UserLoader interface {
	User(ctx context.Context, username string) (*models.User, error)
}

// Resolver turns an Authorization header into an Identity.
type Resolver struct {
	Users       UserLoader
	Tokens      *Tokens
	AdminSecret string
}

// Resolve returns nil for anonymous callers, which includes bad or expired
// tokens and tokens of deleted users. Errors are storage failures only.
func (r *Resolver) Resolve(ctx context.Context, header string) (*Identity, error) {
	if header == "" {
		return nil, nil
	}
	if r.AdminSecret != "" && subtle.ConstantTimeCompare([]byte(header), []byte(r.AdminSecret)) == 1 {
		return &Identity{Username: AdminUsername, Admin: true}, nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || r.Tokens == nil {
		return nil, nil
	}
	username, err := r.Tokens.Verify(strings.TrimSpace(token))
	if err != nil {
		return nil, nil
	}
	u, err := r.Users.User(ctx, username)
	if models.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return IdentityOf(u), nil
}
