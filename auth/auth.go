// Package auth turns the session cookie into an explicit Identity value that
// handlers pass on to every operation needing authorization.
package auth

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blogpress/models"
)

const (
	sessionUserKey = "user_id"
	identityKey    = "identity"
)

// Identity is who is making the request. The zero value is an anonymous visitor.
type Identity struct {
	UserID   uint
	Username string
	Email    string
	IsStaff  bool
}

func (i Identity) Authenticated() bool { return i.UserID != 0 }

func FromUser(u *models.User) Identity {
	return Identity{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		IsStaff:  u.IsStaff,
	}
}

// Load resolves the session user once per request. A session pointing at a
// deleted user is cleared.
func Load(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		raw := session.Get(sessionUserKey)
		if raw == nil {
			c.Set(identityKey, Identity{})
			c.Next()
			return
		}

		id, ok := raw.(uint)
		if !ok {
			session.Clear()
			session.Save()
			c.Set(identityKey, Identity{})
			c.Next()
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
			slog.WarnContext(c.Request.Context(), "session user not found", "user_id", id, "err", err)
			session.Clear()
			session.Save()
			c.Set(identityKey, Identity{})
			c.Next()
			return
		}

		c.Set(identityKey, FromUser(&user))
		c.Next()
	}
}

// Current returns the identity stored by Load, or an anonymous one.
func Current(c *gin.Context) Identity {
	if v, ok := c.Get(identityKey); ok {
		if ident, ok := v.(Identity); ok {
			return ident
		}
	}
	return Identity{}
}

// HasSession reports whether the request carries a logged-in session without
// hitting the store.
func HasSession(c *gin.Context) bool {
	return sessions.Default(c).Get(sessionUserKey) != nil
}

// Login binds user to the current session.
func Login(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	return session.Save()
}

func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

// RequireAuth redirects anonymous visitors to the login page.
func RequireAuth(c *gin.Context) {
	if !Current(c).Authenticated() {
		RedirectToLogin(c)
		c.Abort()
		return
	}
	c.Next()
}

// RequireStaff answers 403 JSON to authenticated non-staff users.
func RequireStaff(c *gin.Context) {
	ident := Current(c)
	if !ident.Authenticated() {
		RedirectToLogin(c)
		c.Abort()
		return
	}
	if !ident.IsStaff {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff only"})
		return
	}
	c.Next()
}

func RedirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
}
