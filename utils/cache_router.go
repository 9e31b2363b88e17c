package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	CacheNoCache = 0
	CacheCustom  = -1 // the handler sets its own headers
)

type CacheRouter struct {
	CacheTime int // defaults to CacheNoCache = 0
}

// Handler sets cache-control on every response of the group it is used on
func (cr *CacheRouter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch cr.CacheTime {
		case CacheCustom:
		case CacheNoCache:
			c.Header("Cache-Control", "no-store")
		default:
			c.Header("Cache-Control", "private, max-age="+strconv.Itoa(cr.CacheTime))
		}
		c.Next()
	}
}
