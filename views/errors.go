package views

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"blogpress/auth"
	"blogpress/content"
)

// ServiceError maps the content error taxonomy onto a response.
func ServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, content.ErrNotFound):
		Error(c, http.StatusNotFound, "Page not found")
	case errors.Is(err, content.ErrUnauthorized):
		auth.RedirectToLogin(c)
	default:
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "err", err)
		Error(c, http.StatusInternalServerError, "Something went wrong")
	}
}

// ParamID reads a positive numeric path parameter. Anything else renders the
// not found page and reports false.
func ParamID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusNotFound, "Page not found")
		return 0, false
	}
	return uint(id), true
}
