// Package client talks to the patio HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"patio/models"
	"patio/storage"
)

// APIError is a non-2xx response. Message is the plain text body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == status
}

type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type Client struct {
	BaseURL  string
	HTTP     *http.Client
	auth     string
	username string
}

func New(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimSuffix(baseURL, "/"), HTTP: &http.Client{}}
}

// SetToken authenticates later calls with a bearer token.
func (c *Client) SetToken(token, username string) {
	c.auth = "Bearer " + token
	c.username = username
}

// SetAdminSecret authenticates later calls with the shared admin secret.
func (c *Client) SetAdminSecret(secret string) {
	c.auth = secret
	c.username = "admin"
}

// Username is the caller name used for optimistic updates.
func (c *Client) Username() string {
	return c.username
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if c.auth != "" {
		req.Header.Set("Authorization", c.auth)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Message: string(msg)}
	}
	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, query, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func libraryQuery(libraryID string) url.Values {
	return url.Values{"library": {libraryID}}
}

// Login exchanges credentials for a token and uses it from then on.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	result := &LoginResult{}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", nil, body, result); err != nil {
		return nil, err
	}
	c.SetToken(result.Token, result.User.Username)
	return result, nil
}

func (c *Client) Users(ctx context.Context) ([]string, error) {
	var users []string
	return users, c.do(ctx, http.MethodGet, "/user", nil, nil, &users)
}

func (c *Client) User(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	return u, c.do(ctx, http.MethodGet, "/user/"+url.PathEscape(username), nil, nil, u)
}

func (c *Client) CreateUser(ctx context.Context, in models.UserCreate) (*models.User, error) {
	u := &models.User{}
	return u, c.do(ctx, http.MethodPost, "/user", nil, in, u)
}

func (c *Client) PatchUser(ctx context.Context, username string, in models.UserPatch) (*models.User, error) {
	u := &models.User{}
	return u, c.do(ctx, http.MethodPatch, "/user/"+url.PathEscape(username), nil, in, u)
}

func (c *Client) DeleteUser(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodDelete, "/user/"+url.PathEscape(username), nil, nil, nil)
}

// Libraries lists the ids of the libraries the caller can access.
func (c *Client) Libraries(ctx context.Context) ([]string, error) {
	var ids []string
	return ids, c.do(ctx, http.MethodGet, "/library", nil, nil, &ids)
}

func (c *Client) Library(ctx context.Context, libraryID string) (*models.LibraryView, error) {
	v := &models.LibraryView{}
	return v, c.do(ctx, http.MethodGet, "/library", libraryQuery(libraryID), nil, v)
}

func (c *Client) CreateLibrary(ctx context.Context, libraryID string, kind models.LibraryKind) (*models.Library, error) {
	l := &models.Library{}
	body := models.LibraryCreate{ID: libraryID, Type: string(kind)}
	return l, c.do(ctx, http.MethodPost, "/library", nil, body, l)
}

// PatchLibraryPhotos replaces the photo list of a photos library.
func (c *Client) PatchLibraryPhotos(ctx context.Context, libraryID string, photos []models.Photo) (*models.Library, error) {
	l := &models.Library{}
	body := models.LibraryPatch{Photos: &photos}
	return l, c.do(ctx, http.MethodPatch, "/library", libraryQuery(libraryID), body, l)
}

func (c *Client) DeleteLibrary(ctx context.Context, libraryID string) error {
	return c.do(ctx, http.MethodDelete, "/library/"+url.PathEscape(libraryID), nil, nil, nil)
}

func (c *Client) CreateAlbum(ctx context.Context, libraryID string, in models.AlbumCreate) (*models.Album, error) {
	a := &models.Album{}
	return a, c.do(ctx, http.MethodPost, "/album", libraryQuery(libraryID), in, a)
}

func (c *Client) PatchAlbum(ctx context.Context, libraryID, albumID string, in models.AlbumPatch) (*models.Album, error) {
	a := &models.Album{}
	return a, c.do(ctx, http.MethodPatch, "/album/"+url.PathEscape(albumID), libraryQuery(libraryID), in, a)
}

func (c *Client) DeleteAlbum(ctx context.Context, libraryID, albumID string) error {
	return c.do(ctx, http.MethodDelete, "/album/"+url.PathEscape(albumID), libraryQuery(libraryID), nil, nil)
}

// Variant is one part of a photo upload.
type Variant struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// UploadPhoto sends the three variants of a photo, keyed by storage size.
func (c *Client) UploadPhoto(ctx context.Context, variants map[storage.Size]Variant) (*models.Photo, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, size := range storage.Sizes {
		v, ok := variants[size]
		if !ok {
			return nil, fmt.Errorf("missing %s variant", size)
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, size, v.Name))
		h.Set("Content-Type", v.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, v.Body); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/photo", nil, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	photo := &models.Photo{}
	return photo, c.send(req, photo)
}

// PhotoURL is the public address of one variant of a photo.
func (c *Client) PhotoURL(photoID string, size storage.Size) string {
	return c.BaseURL + "/photo/" + url.PathEscape(photoID) + "?" + url.Values{"size": {string(size)}}.Encode()
}
