package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"

	"patio/client"
	"patio/models"
	"patio/storage"
	"patio/utils"

	"golang.org/x/term"
)

const (
	thumbnailSize = 400
	previewSize   = 1600
)

// readPassword is replaced in tests.
var readPassword = term.ReadPassword

var errUsage = errors.New("usage: patio [-server URL] [-session FILE] login|albums|create-album|upload [flags]")

// Session is what login leaves behind for the other commands.
type Session struct {
	Server   string `json:"server"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type App struct {
	Out     io.Writer
	Server  string
	Session string
}

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "login":
		return a.login(ctx, args[1:])
	case "albums":
		return a.albums(ctx, args[1:])
	case "create-album":
		return a.createAlbum(ctx, args[1:])
	case "upload":
		return a.upload(ctx, args[1:])
	}
	return fmt.Errorf("unknown command %q\n%w", args[0], errUsage)
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Out)
	return fs
}

func (a *App) promptPassword() (string, error) {
	fmt.Fprint(a.Out, "Enter password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.Out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func (a *App) saveSession(s Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(a.Session, data, 0600)
}

// client returns an API client authenticated with the saved session.
func (a *App) client() (*client.Client, error) {
	data, err := os.ReadFile(a.Session)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.New("not logged in, run patio login first")
	}
	if err != nil {
		return nil, err
	}
	s := Session{}
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("reading session %s: %w", a.Session, err)
	}
	server := a.Server
	if server == "" {
		server = s.Server
	}
	c := client.New(server)
	c.SetToken(s.Token, s.Username)
	return c, nil
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	username := fs.String("user", "", "username")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || a.Server == "" {
		return errors.New("login needs -server and -user")
	}
	password, err := a.promptPassword()
	if err != nil {
		return err
	}
	c := client.New(a.Server)
	result, err := c.Login(ctx, *username, password)
	if err != nil {
		return err
	}
	if err := a.saveSession(Session{Server: c.BaseURL, Username: result.User.Username, Token: result.Token}); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Logged in as %s\n", result.User.Username)
	return nil
}

func (a *App) albums(ctx context.Context, args []string) error {
	fs := a.flags("albums")
	libraryID := fs.String("library", "", "library id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := a.client()
	if err != nil {
		return err
	}
	view, err := c.Library(ctx, *libraryID)
	if err != nil {
		return err
	}
	albums, err := view.Library.Albums()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSLUG\tDATE\tPHOTOS\tPUBLIC")
	for _, album := range albums.Albums {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%t\n", album.ID, album.Name, album.Slug, album.Date, len(album.Photos), album.Public)
	}
	return w.Flush()
}

func (a *App) createAlbum(ctx context.Context, args []string) error {
	fs := a.flags("create-album")
	libraryID := fs.String("library", "", "library id")
	name := fs.String("name", "", "album name")
	slug := fs.String("slug", "", "album slug, derived from the name if empty")
	date := fs.String("date", "", "album date, YYYY-MM-DD")
	public := fs.Bool("public", false, "visible to everyone")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := a.client()
	if err != nil {
		return err
	}
	in := models.AlbumCreate{Name: *name, Public: *public}
	if *slug != "" {
		in.Slug = slug
	}
	if *date != "" {
		in.Date = date
	}
	album, err := c.CreateAlbum(ctx, *libraryID, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Created album %s (%s)\n", album.ID, album.Slug)
	return nil
}

// variants reads an image file and derives the thumbnail and preview from it.
func variants(path string) (map[storage.Size]client.Variant, error) {
	original, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var thumb, preview bytes.Buffer
	if _, err := utils.CreateCoverThumb(thumbnailSize, bytes.NewReader(original), &thumb); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if _, err := utils.CreateThumb(previewSize, bytes.NewReader(original), &preview); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return map[storage.Size]client.Variant{
		storage.SizeOriginal:  {Name: name, ContentType: contentType, Body: bytes.NewReader(original)},
		storage.SizeThumbnail: {Name: name, ContentType: "image/jpeg", Body: &thumb},
		storage.SizePreview:   {Name: name, ContentType: "image/jpeg", Body: &preview},
	}, nil
}

// upload sends each file and then adds the new photos to an album, or to the
// library itself when it is a photos library.
func (a *App) upload(ctx context.Context, args []string) error {
	fs := a.flags("upload")
	libraryID := fs.String("library", "", "library id")
	albumID := fs.String("album", "", "album id, for albums libraries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("upload needs at least one file")
	}
	c, err := a.client()
	if err != nil {
		return err
	}
	state := client.NewLibraryState(c, c.Username())
	if err := state.Load(ctx, *libraryID); err != nil {
		return err
	}
	library, err := state.Library()
	if err != nil {
		return err
	}

	var uploaded []models.Photo
	for _, path := range fs.Args() {
		parts, err := variants(path)
		if err != nil {
			return err
		}
		photo, err := c.UploadPhoto(ctx, parts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(a.Out, "Uploaded %s as %s\n", path, photo.ID)
		uploaded = append(uploaded, models.Photo{ID: photo.ID})
	}

	if library.Kind() == models.LibraryKindPhotos {
		photos, _ := library.Photos()
		_, err := state.ReplacePhotos(ctx, append(photos.Photos, uploaded...))
		return err
	}
	albums, err := library.Albums()
	if err != nil {
		return err
	}
	i := albums.FindAlbum(*albumID)
	if i < 0 {
		return fmt.Errorf("album %q not found in library %q", *albumID, *libraryID)
	}
	album := albums.Albums[i]
	photos := append(album.Photos, uploaded...)
	patch := models.AlbumPatch{Photos: &photos}
	if album.Cover == nil {
		patch.Cover = models.NullStringOf(uploaded[0].ID)
	}
	album, err = state.PatchAlbum(ctx, album.ID, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Album %s now has %d photos\n", album.Name, len(album.Photos))
	return nil
}
