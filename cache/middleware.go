package cache

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"blogpress/auth"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware serves GET pages from store for anonymous visitors and stores
// successful HTML responses. A nil store disables caching.
func Middleware(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || c.Request.Method != http.MethodGet || auth.HasSession(c) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := Key(c.Request.URL.RequestURI())

		if e, found := store.Get(ctx, key); found {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, e.ContentType, e.Body)
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		contentType := c.Writer.Header().Get("Content-Type")
		if c.Writer.Status() != http.StatusOK || !strings.HasPrefix(contentType, "text/html") {
			return
		}
		if err := store.Set(ctx, key, &Entry{ContentType: contentType, Body: writer.body.Bytes()}); err != nil {
			slog.WarnContext(ctx, "failed to cache page", "path", c.Request.URL.Path, "err", err)
		}
	}
}
