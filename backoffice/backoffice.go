// Package backoffice exposes the staff moderation actions as a JSON API.
package backoffice

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"blogpress/auth"
	"blogpress/cache"
	"blogpress/content"
	"blogpress/models"
	"blogpress/moderation"
	"blogpress/pagination"
)

type BackofficeModule struct {
	svc   *content.Service
	cache cache.Store
}

// NewBackofficeModule wires the staff API. store may be nil when page caching
// is disabled.
func NewBackofficeModule(svc *content.Service, store cache.Store) *BackofficeModule {
	return &BackofficeModule{svc: svc, cache: store}
}

func (b *BackofficeModule) RegisterRoutes(router *gin.Engine) {
	staff := router.Group("/admin")
	staff.Use(auth.RequireStaff)
	{
		staff.GET("/posts", b.listPosts)
		staff.POST("/posts/mark-posted", b.markPosted)
		staff.POST("/posts/:id/publish", b.publishPost)
		staff.DELETE("/posts/:id", b.deletePost)
		staff.GET("/comments", b.listComments)
		staff.POST("/comments/mark-moderated", b.markModerated)
		staff.DELETE("/users/:id", b.deleteUser)
		staff.POST("/cache/clear", b.clearCache)
	}
}

// postRow is a post as the staff list shows it.
type postRow struct {
	models.Post
	State   string `json:"state"`
	Visible bool   `json:"visible"`
}

type commentRow struct {
	models.Comment
	State   string `json:"state"`
	Visible bool   `json:"visible"`
}

// rows keeps the page metadata and converts every item.
func rows[T, R any](p *pagination.Page[T], convert func(*T) R) *pagination.Page[R] {
	out := &pagination.Page[R]{
		Items:    make([]R, len(p.Items)),
		Number:   p.Number,
		NumPages: p.NumPages,
		Count:    p.Count,
		PerPage:  p.PerPage,
	}
	for i := range p.Items {
		out.Items[i] = convert(&p.Items[i])
	}
	return out
}

func newPostRow(p *models.Post) postRow {
	return postRow{
		Post:    *p,
		State:   moderation.StateOfPost(p).String(),
		Visible: moderation.PostVisible(p),
	}
}

// newCommentRow expects the parent post to be preloaded.
func newCommentRow(c *models.Comment) commentRow {
	return commentRow{
		Comment: *c,
		State:   moderation.StateOfComment(c).String(),
		Visible: moderation.CommentVisible(c, &c.Post),
	}
}

type idsRequest struct {
	IDs []uint `form:"ids" json:"ids"`
}

func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, content.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, content.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "staff only"})
	default:
		slog.ErrorContext(c.Request.Context(), "staff action failed", "path", c.Request.URL.Path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// parseBool reads an optional true/false query filter.
func parseBool(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseUint(raw string) (uint, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	return uint(v), err
}

func bindIDs(c *gin.Context) ([]uint, bool) {
	var req idsRequest
	if err := c.ShouldBind(&req); err != nil || len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids is required"})
		return nil, false
	}
	return req.IDs, true
}

func (b *BackofficeModule) listPosts(c *gin.Context) {
	posted, err := parseBool(c.Query("posted"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "posted must be true or false"})
		return
	}
	author, err := parseUint(c.Query("author"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "author must be a user id"})
		return
	}

	filter := content.PostFilter{Posted: posted, AuthorID: author, Search: c.Query("q")}
	page, err := b.svc.StaffPosts(c.Request.Context(), auth.Current(c), filter, c.Query("page"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows(page, newPostRow))
}

func (b *BackofficeModule) markPosted(c *gin.Context) {
	ids, ok := bindIDs(c)
	if !ok {
		return
	}

	n, err := b.svc.MarkPosted(c.Request.Context(), auth.Current(c), ids)
	if err != nil {
		abortWithError(c, err)
		return
	}
	slog.InfoContext(c.Request.Context(), "posts marked posted", "ids", ids, "updated", n)
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (b *BackofficeModule) publishPost(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := b.svc.PublishPost(c.Request.Context(), auth.Current(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"published": id})
}

func (b *BackofficeModule) deletePost(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := b.svc.DeletePost(c.Request.Context(), auth.Current(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (b *BackofficeModule) listComments(c *gin.Context) {
	moderated, err := parseBool(c.Query("moderated"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "moderated must be true or false"})
		return
	}
	post, err := parseUint(c.Query("post"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "post must be a post id"})
		return
	}

	filter := content.CommentFilter{Moderated: moderated, PostID: post, Search: c.Query("q")}
	page, err := b.svc.StaffComments(c.Request.Context(), auth.Current(c), filter, c.Query("page"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows(page, newCommentRow))
}

func (b *BackofficeModule) markModerated(c *gin.Context) {
	ids, ok := bindIDs(c)
	if !ok {
		return
	}

	n, err := b.svc.MarkModerated(c.Request.Context(), auth.Current(c), ids)
	if err != nil {
		abortWithError(c, err)
		return
	}
	slog.InfoContext(c.Request.Context(), "comments marked moderated", "ids", ids, "updated", n)
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (b *BackofficeModule) deleteUser(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := b.svc.DeleteUser(c.Request.Context(), auth.Current(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (b *BackofficeModule) clearCache(c *gin.Context) {
	if b.cache == nil {
		c.JSON(http.StatusOK, gin.H{"cleared": false})
		return
	}
	if err := b.cache.Clear(c.Request.Context()); err != nil {
		abortWithError(c, errors.Wrap(err, "clear cache"))
		return
	}
	slog.InfoContext(c.Request.Context(), "page cache cleared", "by", auth.Current(c).Username)
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
