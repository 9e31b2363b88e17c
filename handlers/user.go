package handlers

import (
	"net/http"

	"patio/auth"
	"patio/models"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (api *API) Login(c *gin.Context) {
	req := LoginRequest{}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	u, err := api.Repo.User(c.Request.Context(), req.Username)
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.VerifyPassword(req.Password, u.Password) {
		fail(c, models.Authenticationf("Incorrect password"))
		return
	}
	token, err := api.Tokens.Issue(u.Username)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Token: token, User: u.Safe(u.AdminAccess)})
}

func (api *API) UserList(c *gin.Context, id *auth.Identity) {
	root, err := api.Repo.Root(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, root.Users)
}

func (api *API) UserCreate(c *gin.Context, id *auth.Identity) {
	req := models.UserCreate{}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if !models.ValidID(req.Username) {
		fail(c, models.Validationf("Invalid username %q", req.Username))
		return
	}
	ctx := c.Request.Context()
	if _, err := api.Repo.User(ctx, req.Username); err == nil {
		fail(c, models.Conflictf("User with username %q already exists", req.Username))
		return
	} else if !models.IsNotFound(err) {
		fail(c, err)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	u := &models.User{
		Username:      req.Username,
		Password:      hash,
		LibraryAccess: req.LibraryAccess,
		AdminAccess:   req.AdminAccess,
		CreatedBy:     id.Name(),
		CreatedAt:     models.Timestamp(api.Now()),
	}
	if err := api.Repo.CreateUser(ctx, u); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u.Safe(true))
}

func (api *API) UserGet(c *gin.Context, id *auth.Identity) {
	username := c.Param("username")
	if !id.IsAdmin() && id.Name() != username {
		fail(c, models.Authorizationf("Unauthorized to access user %q", username))
		return
	}
	u, err := api.Repo.User(c.Request.Context(), username)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u.Safe(id.IsAdmin()))
}

func (api *API) UserPatch(c *gin.Context, id *auth.Identity) {
	username := c.Param("username")
	req := models.UserPatch{}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	u, err := api.Repo.User(ctx, username)
	if err != nil {
		fail(c, err)
		return
	}
	if req.AdminAccess != nil {
		if id.Name() == u.Username {
			fail(c, models.Authorizationf(`Unauthorized to modify "admin_access" of yourself`))
			return
		}
		u.AdminAccess = *req.AdminAccess
	}
	if req.LibraryAccess != nil {
		u.LibraryAccess = *req.LibraryAccess
	}
	if req.Password != nil {
		if u.Password, err = auth.HashPassword(*req.Password); err != nil {
			fail(c, err)
			return
		}
	}
	if err := api.Repo.PutUser(ctx, u); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u.Safe(true))
}

func (api *API) UserDelete(c *gin.Context, id *auth.Identity) {
	username := c.Param("username")
	if id.Name() == username {
		fail(c, models.Authorizationf("Unauthorized to delete yourself"))
		return
	}
	ctx := c.Request.Context()
	if _, err := api.Repo.User(ctx, username); err != nil {
		fail(c, err)
		return
	}
	if err := api.Repo.RemoveUser(ctx, username); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}
