// Package author serves the pages where logged-in users write and manage
// their own posts.
package author

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"blogpress/auth"
	"blogpress/content"
	"blogpress/models"
	"blogpress/views"
)

type AuthorModule struct {
	svc *content.Service
}

func NewAuthorModule(svc *content.Service) *AuthorModule {
	return &AuthorModule{svc: svc}
}

func (a *AuthorModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/")
	group.Use(auth.RequireAuth)
	{
		group.GET("/posts/create/", a.newPost)
		group.POST("/posts/create/", a.createPost)
		group.GET("/posts/update/:id/", a.editPost)
		group.POST("/posts/update/:id/", a.updatePost)
		group.GET("/posts/delete/:id/", a.confirmDelete)
		group.POST("/posts/delete/:id/", a.deletePost)
		group.GET("/my-posts/", a.dashboard)
	}
}

func formOf(post *models.Post) content.PostForm {
	form := content.PostForm{
		Title:            post.Title,
		ShortDescription: post.ShortDescription,
		FullDescription:  post.FullDescription,
		Posted:           post.Posted,
	}
	if post.Image != nil {
		form.Image = *post.Image
	}
	return form
}

func updatePath(id uint) string {
	return "/posts/update/" + strconv.FormatUint(uint64(id), 10) + "/"
}

func (a *AuthorModule) renderForm(c *gin.Context, status int, title, action string, form content.PostForm, fieldErrors map[string]string, post *models.Post) {
	data := gin.H{
		"title":  title,
		"action": action,
		"form":   form,
		"errors": fieldErrors,
	}
	if post != nil {
		data["post"] = post
	}
	views.Render(c, status, "post_form.html", data)
}

func (a *AuthorModule) newPost(c *gin.Context) {
	a.renderForm(c, http.StatusOK, "New post", "/posts/create/", content.PostForm{}, map[string]string{}, nil)
}

func (a *AuthorModule) createPost(c *gin.Context) {
	var form content.PostForm
	if err := c.ShouldBind(&form); err != nil {
		views.Error(c, http.StatusBadRequest, "Invalid form")
		return
	}

	_, err := a.svc.CreatePost(c.Request.Context(), auth.Current(c), form)
	if fields, invalid := content.FieldErrors(err); invalid {
		a.renderForm(c, http.StatusBadRequest, "New post", "/posts/create/", form, fields, nil)
		return
	}
	if err != nil {
		views.ServiceError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/posts/")
}

func (a *AuthorModule) editPost(c *gin.Context) {
	id, ok := views.ParamID(c, "id")
	if !ok {
		return
	}

	post, err := a.svc.EditablePost(c.Request.Context(), auth.Current(c), id)
	if err != nil {
		views.ServiceError(c, err)
		return
	}
	a.renderForm(c, http.StatusOK, "Edit post", updatePath(id), formOf(post), map[string]string{}, post)
}

func (a *AuthorModule) updatePost(c *gin.Context) {
	id, ok := views.ParamID(c, "id")
	if !ok {
		return
	}

	var form content.PostForm
	if err := c.ShouldBind(&form); err != nil {
		views.Error(c, http.StatusBadRequest, "Invalid form")
		return
	}

	post, err := a.svc.UpdatePost(c.Request.Context(), auth.Current(c), id, form)
	if fields, invalid := content.FieldErrors(err); invalid {
		a.renderForm(c, http.StatusBadRequest, "Edit post", updatePath(id), form, fields, &models.Post{ID: id})
		return
	}
	if err != nil {
		views.ServiceError(c, err)
		return
	}

	views.Flash(c, "Post updated")
	c.Redirect(http.StatusFound, updatePath(post.ID))
}

func (a *AuthorModule) confirmDelete(c *gin.Context) {
	id, ok := views.ParamID(c, "id")
	if !ok {
		return
	}

	post, err := a.svc.EditablePost(c.Request.Context(), auth.Current(c), id)
	if err != nil {
		views.ServiceError(c, err)
		return
	}
	views.Render(c, http.StatusOK, "post_delete.html", gin.H{
		"title": "Delete post",
		"post":  post,
	})
}

func (a *AuthorModule) deletePost(c *gin.Context) {
	id, ok := views.ParamID(c, "id")
	if !ok {
		return
	}

	if err := a.svc.DeletePost(c.Request.Context(), auth.Current(c), id); err != nil {
		views.ServiceError(c, err)
		return
	}

	views.Flash(c, "Post deleted")
	c.Redirect(http.StatusFound, "/posts/")
}

func (a *AuthorModule) dashboard(c *gin.Context) {
	d, err := a.svc.OwnerDashboard(c.Request.Context(), auth.Current(c), c.Query("page"))
	if err != nil {
		views.ServiceError(c, err)
		return
	}

	views.Render(c, http.StatusOK, "users_posts.html", gin.H{
		"title":  "My posts",
		"posted": d.Posted,
		"drafts": d.Drafts,
	})
}
