// Package webtest builds gin routers for the handler module tests.
package webtest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blogpress/auth"
	"blogpress/models"
	"blogpress/views"
)

const loginPath = "/_test/login/"

// NewRouter returns a router with templates, sessions and identity loading in
// place, plus a shortcut route logging in any user by id.
func NewRouter(t testing.TB, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tmpl, err := views.New("http://localhost:8080")
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(sessions.Sessions("test-session", cookie.NewStore([]byte("secret"))), auth.Load(db))

	router.GET(loginPath+":id", func(c *gin.Context) {
		id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
		var user models.User
		if err := db.First(&user, id).Error; err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		auth.Login(c, &user)
		c.Status(http.StatusNoContent)
	})
	return router
}

// LoginAs returns the session cookies of user.
func LoginAs(t testing.TB, router *gin.Engine, user *models.User) []*http.Cookie {
	t.Helper()
	w := Do(router, http.MethodGet, loginPath+strconv.FormatUint(uint64(user.ID), 10), nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("login as %s: status %d", user.Username, w.Code)
	}
	return w.Result().Cookies()
}

// Do sends one request. A non-nil form is sent url-encoded.
func Do(router *gin.Engine, method, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// DoJSON sends body as a JSON request.
func DoJSON(router *gin.Engine, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
