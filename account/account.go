// Package account handles registration, login and the profile page.
package account

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"blogpress/auth"
	"blogpress/content"
	"blogpress/models"
	"blogpress/views"
)

type AccountModule struct {
	db *gorm.DB
}

func NewAccountModule(db *gorm.DB) *AccountModule {
	return &AccountModule{db: db}
}

func (a *AccountModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/login", a.loginPage)
	router.POST("/login", a.loginPost)
	router.GET("/register", a.registerPage)
	router.POST("/register", a.registerPost)
	router.GET("/logout", a.logout)
	router.GET("/profile", auth.RequireAuth, a.profilePage)
	router.POST("/profile", auth.RequireAuth, a.profilePost)
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func (a *AccountModule) loginPage(c *gin.Context) {
	next := safeNext(c.Query("next"))
	if auth.Current(c).Authenticated() {
		c.Redirect(http.StatusFound, next)
		return
	}

	views.Render(c, http.StatusOK, "login.html", gin.H{
		"title":    "Log in",
		"next":     next,
		"username": "",
	})
}

func (a *AccountModule) loginPost(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := safeNext(c.PostForm("next"))

	fail := func() {
		views.Render(c, http.StatusUnauthorized, "login.html", gin.H{
			"title":    "Log in",
			"error":    "Please enter a correct username and password.",
			"username": username,
			"next":     next,
		})
	}

	var user models.User
	if err := a.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&user).Error; err != nil {
		fail()
		return
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		fail()
		return
	}

	if err := auth.Login(c, &user); err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to save session", "err", err)
		views.Error(c, http.StatusInternalServerError, "Something went wrong")
		return
	}
	c.Redirect(http.StatusFound, next)
}

func (a *AccountModule) registerPage(c *gin.Context) {
	if auth.Current(c).Authenticated() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	views.Render(c, http.StatusOK, "register.html", gin.H{
		"title":  "Register",
		"form":   content.RegisterForm{},
		"errors": map[string]string{},
	})
}

func (a *AccountModule) registerPost(c *gin.Context) {
	var form content.RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		views.Error(c, http.StatusBadRequest, "Invalid form")
		return
	}

	user, err := a.register(c, &form)
	if fields, invalid := content.FieldErrors(err); invalid {
		views.Render(c, http.StatusBadRequest, "register.html", gin.H{
			"title":  "Register",
			"form":   content.RegisterForm{Username: form.Username, Email: form.Email},
			"errors": fields,
		})
		return
	}
	if err != nil {
		views.ServiceError(c, err)
		return
	}

	if err := auth.Login(c, user); err != nil {
		views.ServiceError(c, errors.Wrap(err, "save session"))
		return
	}
	views.Flash(c, "Profile created")
	c.Redirect(http.StatusFound, "/")
}

func (a *AccountModule) register(c *gin.Context, form *content.RegisterForm) (*models.User, error) {
	if err := content.Validate(form); err != nil {
		return nil, err
	}

	db := a.db.WithContext(c.Request.Context())
	var taken int64
	if err := db.Model(&models.User{}).Where("username = ?", form.Username).Count(&taken).Error; err != nil {
		return nil, errors.Wrap(err, "check username")
	}
	if taken > 0 {
		return nil, &content.ValidationError{Fields: map[string]string{
			"username": "A user with that username already exists.",
		}}
	}

	hash, err := auth.HashPassword(form.Password1)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	user := models.User{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	slog.InfoContext(c.Request.Context(), "user registered", "user_id", user.ID, "username", user.Username)
	return &user, nil
}

func (a *AccountModule) logout(c *gin.Context) {
	if err := auth.Logout(c); err != nil {
		slog.WarnContext(c.Request.Context(), "failed to clear session", "err", err)
	}
	c.Redirect(http.StatusFound, "/")
}

func (a *AccountModule) currentUser(c *gin.Context) (*models.User, error) {
	var user models.User
	err := a.db.WithContext(c.Request.Context()).First(&user, auth.Current(c).UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, content.ErrUnauthorized
	}
	return &user, errors.Wrap(err, "load current user")
}

func (a *AccountModule) profilePage(c *gin.Context) {
	user, err := a.currentUser(c)
	if err != nil {
		views.ServiceError(c, err)
		return
	}

	var form content.ProfileForm
	if err := copier.Copy(&form, user); err != nil {
		views.ServiceError(c, errors.Wrap(err, "copy profile"))
		return
	}
	views.Render(c, http.StatusOK, "profile.html", gin.H{
		"title":  "Profile",
		"form":   form,
		"errors": map[string]string{},
	})
}

func (a *AccountModule) profilePost(c *gin.Context) {
	user, err := a.currentUser(c)
	if err != nil {
		views.ServiceError(c, err)
		return
	}

	var form content.ProfileForm
	if err := c.ShouldBind(&form); err != nil {
		views.Error(c, http.StatusBadRequest, "Invalid form")
		return
	}
	if err := content.Validate(&form); err != nil {
		fields, invalid := content.FieldErrors(err)
		if !invalid {
			views.ServiceError(c, err)
			return
		}
		views.Render(c, http.StatusBadRequest, "profile.html", gin.H{
			"title":  "Profile",
			"form":   form,
			"errors": fields,
		})
		return
	}

	if err := copier.Copy(user, &form); err != nil {
		views.ServiceError(c, errors.Wrap(err, "copy profile"))
		return
	}
	err = a.db.WithContext(c.Request.Context()).Model(user).
		Select("first_name", "last_name", "email").
		Updates(user).Error
	if err != nil {
		views.ServiceError(c, errors.Wrap(err, "update profile"))
		return
	}

	views.Flash(c, "Profile updated")
	c.Redirect(http.StatusFound, "/")
}
