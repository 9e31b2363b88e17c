package auth

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandlerFunc receives the resolved caller, nil when anonymous
type HandlerFunc func(c *gin.Context, id *Identity)

type Requirement int

const (
	RequireNone Requirement = iota
	RequireUser
	RequireAdmin
)

// Router is a wrapper that resolves the caller and enforces the requirement
// before calling the handler
type Router struct {
	Base     gin.IRouter
	Resolver *Resolver
}

func (cr *Router) baseExec(c *gin.Context, handler HandlerFunc, required Requirement) {
	id, err := cr.Resolver.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		log.Printf("Cannot resolve caller: %v", err)
		c.String(http.StatusInternalServerError, "Storage error")
		return
	}
	if (required == RequireUser && !id.Authenticated()) || (required == RequireAdmin && !id.IsAdmin()) {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}
	handler(c, id)
}

func requirement(required []Requirement) Requirement {
	if len(required) == 0 {
		return RequireNone
	}
	return required[0]
}

func (cr *Router) GET(path string, handler HandlerFunc, required ...Requirement) {
	r := requirement(required)
	cr.Base.GET(path, func(c *gin.Context) {
		cr.baseExec(c, handler, r)
	})
}

func (cr *Router) POST(path string, handler HandlerFunc, required ...Requirement) {
	r := requirement(required)
	cr.Base.POST(path, func(c *gin.Context) {
		cr.baseExec(c, handler, r)
	})
}

func (cr *Router) PATCH(path string, handler HandlerFunc, required ...Requirement) {
	r := requirement(required)
	cr.Base.PATCH(path, func(c *gin.Context) {
		cr.baseExec(c, handler, r)
	})
}

func (cr *Router) DELETE(path string, handler HandlerFunc, required ...Requirement) {
	r := requirement(required)
	cr.Base.DELETE(path, func(c *gin.Context) {
		cr.baseExec(c, handler, r)
	})
}
