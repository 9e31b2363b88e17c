package utils

import (
	"log"

	"github.com/gin-gonic/gin"
)

type errorLogWriter struct {
	gin.ResponseWriter
	gc *gin.Context
}

func (w errorLogWriter) Write(b []byte) (int, error) {
	if status := w.gc.Writer.Status(); status >= 400 {
		log.Printf("[DEBUG ERROR]: %s %s, status %d, body: %s", w.gc.Request.Method, w.gc.Request.URL.Path, status, string(b))
	}
	return w.ResponseWriter.Write(b)
}

func (w errorLogWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// ErrorLogMiddleware logs the body of every error response. Must be added
// after gzip so it sees the body before compression.
func ErrorLogMiddleware(c *gin.Context) {
	c.Writer = &errorLogWriter{gc: c, ResponseWriter: c.Writer}
	c.Next()
}
