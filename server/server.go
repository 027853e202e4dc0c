// Package server assembles the gin engine from the feature modules.
package server

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blogpress/account"
	"blogpress/auth"
	"blogpress/author"
	"blogpress/backoffice"
	"blogpress/blog"
	"blogpress/cache"
	"blogpress/config"
	"blogpress/content"
	"blogpress/logger"
	"blogpress/notify"
	"blogpress/site"
	"blogpress/views"
)

const sessionName = "blogpress-session"

// Deps are the long-lived collaborators the handlers share.
type Deps struct {
	DB         *gorm.DB
	Service    *content.Service
	Dispatcher *notify.Dispatcher
	Cache      cache.Store // nil disables page caching
}

func NewRouter(cfg config.ServerConfig, deps Deps) (*gin.Engine, error) {
	tmpl, err := views.New(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
	})

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(
		logger.RequestLogger(),
		gin.Recovery(),
		sessions.Sessions(sessionName, store),
		auth.Load(deps.DB),
	)

	var pageCache gin.HandlerFunc
	if deps.Cache != nil {
		pageCache = cache.Middleware(deps.Cache)
	}

	site.NewSiteModule(deps.Service, deps.Dispatcher, cfg.BaseURL).RegisterRoutes(router)
	blog.NewBlogModule(deps.Service, pageCache).RegisterRoutes(router)
	author.NewAuthorModule(deps.Service).RegisterRoutes(router)
	account.NewAccountModule(deps.DB).RegisterRoutes(router)
	backoffice.NewBackofficeModule(deps.Service, deps.Cache).RegisterRoutes(router)

	router.NoRoute(func(c *gin.Context) {
		views.Error(c, http.StatusNotFound, "Page not found")
	})

	return router, nil
}
