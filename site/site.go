// Package site serves the home page, the feedback form and the sitemap.
package site

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"blogpress/content"
	"blogpress/views"
)

// FeedbackSender forwards a visitor message to the administrators.
type FeedbackSender interface {
	Feedback(ctx context.Context, from, message string)
}

type SiteModule struct {
	svc      *content.Service
	feedback FeedbackSender
	baseURL  string
}

func NewSiteModule(svc *content.Service, feedback FeedbackSender, baseURL string) *SiteModule {
	return &SiteModule{
		svc:      svc,
		feedback: feedback,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *SiteModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", s.index)
	router.GET("/feedback/", s.feedbackPage)
	router.POST("/feedback/", s.feedbackPost)
	router.GET("/sitemap.xml", s.sitemap)
}

func (s *SiteModule) index(c *gin.Context) {
	views.Render(c, http.StatusOK, "index.html", gin.H{})
}

func (s *SiteModule) feedbackPage(c *gin.Context) {
	views.Render(c, http.StatusOK, "feedback.html", gin.H{
		"title":  "Feedback",
		"form":   content.FeedbackForm{},
		"errors": map[string]string{},
	})
}

func (s *SiteModule) feedbackPost(c *gin.Context) {
	var form content.FeedbackForm
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
		views.Render(c, http.StatusBadRequest, "feedback.html", gin.H{
			"title":  "Feedback",
			"form":   form,
			"errors": fields,
		})
		return
	}

	s.feedback.Feedback(c.Request.Context(), form.Email, form.Message)
	views.Flash(c, "Thank you for your feedback!")
	c.Redirect(http.StatusFound, "/feedback/")
}

func (s *SiteModule) sitemap(c *gin.Context) {
	posts, users, err := s.svc.SitemapEntries(c.Request.Context())
	if err != nil {
		views.ServiceError(c, err)
		return
	}

	var sitemap strings.Builder
	sitemap.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sitemap.WriteString("\n")
	sitemap.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	sitemap.WriteString("\n")

	writeURL := func(loc, changefreq, priority string, lastmod *time.Time) {
		sitemap.WriteString("  <url>\n")
		sitemap.WriteString("    <loc>" + s.baseURL + loc + "</loc>\n")
		if lastmod != nil {
			sitemap.WriteString("    <lastmod>" + lastmod.Format(time.RFC3339) + "</lastmod>\n")
		}
		sitemap.WriteString("    <changefreq>" + changefreq + "</changefreq>\n")
		sitemap.WriteString("    <priority>" + priority + "</priority>\n")
		sitemap.WriteString("  </url>\n")
	}

	writeURL("/", "weekly", "1.0", nil)
	writeURL("/posts/", "daily", "0.8", nil)
	writeURL("/user/", "weekly", "0.5", nil)

	for _, post := range posts {
		lastmod := post.PublishedDate
		if lastmod == nil {
			lastmod = &post.CreatedDate
		}
		writeURL(fmt.Sprintf("/posts/%d/", post.ID), "monthly", "0.6", lastmod)
	}
	for _, user := range users {
		writeURL(fmt.Sprintf("/user/%d/", user.ID), "monthly", "0.4", nil)
	}

	sitemap.WriteString("</urlset>\n")

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, sitemap.String())
}
