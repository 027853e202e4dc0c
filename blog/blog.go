// Package blog serves the public pages: post list, post detail with its
// comment form, and the author directory.
package blog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"blogpress/auth"
	"blogpress/content"
	"blogpress/views"
)

type BlogModule struct {
	svc   *content.Service
	cache gin.HandlerFunc
}

// NewBlogModule wires the public pages. cache runs in front of every cached
// GET route; pass nil to serve them uncached.
func NewBlogModule(svc *content.Service, cache gin.HandlerFunc) *BlogModule {
	if cache == nil {
		cache = func(c *gin.Context) { c.Next() }
	}
	return &BlogModule{svc: svc, cache: cache}
}

func (b *BlogModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/posts/", b.cache, b.postList)
	router.GET("/posts/:id/", b.cache, b.postDetail)
	router.POST("/posts/:id/", b.addComment)
	router.GET("/user/", b.cache, b.userList)
	router.GET("/user/:id/", b.cache, b.userDetail)
}

func (b *BlogModule) postList(c *gin.Context) {
	page, err := b.svc.ListPublicPosts(c.Request.Context(), c.Query("page"))
	if err != nil {
		views.ServiceError(c, err)
		return
	}

	views.Render(c, http.StatusOK, "post_list.html", gin.H{
		"title": "Posts",
		"page":  page,
	})
}

func (b *BlogModule) postDetail(c *gin.Context) {
	id, ok := views.ParamID(c, "id")
	if !ok {
		return
	}
	form := content.CommentForm{Username: auth.Current(c).Username}
	b.renderDetail(c, id, http.StatusOK, form, map[string]string{})
}

func (b *BlogModule) renderDetail(c *gin.Context, id uint, status int, form content.CommentForm, fieldErrors map[string]string) {
	detail, err := b.svc.PostDetail(c.Request.Context(), id, c.Query("page"))
	if err != nil {
		views.ServiceError(c, err)
		return
	}

	views.Render(c, status, "post_detail.html", gin.H{
		"title":    detail.Post.Title,
		"post":     detail.Post,
		"comments": detail.Comments,
		"form":     form,
		"errors":   fieldErrors,
	})
}

func (b *BlogModule) addComment(c *gin.Context) {
	id, ok := views.ParamID(c, "id")
	if !ok {
		return
	}

	var form content.CommentForm
	if err := c.ShouldBind(&form); err != nil {
		views.Error(c, http.StatusBadRequest, "Invalid form")
		return
	}

	_, err := b.svc.AddComment(c.Request.Context(), id, form)
	if fields, invalid := content.FieldErrors(err); invalid {
		b.renderDetail(c, id, http.StatusBadRequest, form, fields)
		return
	}
	if err != nil {
		views.ServiceError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/posts/"+strconv.FormatUint(uint64(id), 10)+"/")
}

func (b *BlogModule) userList(c *gin.Context) {
	page, err := b.svc.ListPublicUsers(c.Request.Context(), c.Query("page"))
	if err != nil {
		views.ServiceError(c, err)
		return
	}

	views.Render(c, http.StatusOK, "user_list.html", gin.H{
		"title": "Authors",
		"page":  page,
	})
}

func (b *BlogModule) userDetail(c *gin.Context) {
	id, ok := views.ParamID(c, "id")
	if !ok {
		return
	}

	detail, err := b.svc.UserDetail(c.Request.Context(), id, c.Query("page"))
	if err != nil {
		views.ServiceError(c, err)
		return
	}

	views.Render(c, http.StatusOK, "user_detail.html", gin.H{
		"title":   detail.User.Username,
		"profile": detail.User,
		"page":    detail.Posts,
	})
}
