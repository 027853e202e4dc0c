package server

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"blogpress/auth"
	"blogpress/cache"
	"blogpress/config"
	"blogpress/content"
	"blogpress/dbtest"
	"blogpress/email"
	"blogpress/models"
	"blogpress/notify"
	"blogpress/webtest"
)

type app struct {
	router     *gin.Engine
	db         *gorm.DB
	outbox     *email.Outbox
	dispatcher *notify.Dispatcher
}

func newApp(t *testing.T, store cache.Store) *app {
	gin.SetMode(gin.TestMode)
	auth.PasswordCost = bcrypt.MinCost

	db := dbtest.Open(t)
	outbox := &email.Outbox{}
	dispatcher := notify.NewDispatcher(outbox, notify.Options{
		AdminAddress: "admin@example.com",
		From:         "ad@example.com",
		BaseURL:      "http://blog.test",
	})

	router, err := NewRouter(config.ServerConfig{
		SessionSecret: "secret",
		BaseURL:       "http://blog.test",
	}, Deps{
		DB:         db,
		Service:    content.NewService(db, dispatcher),
		Dispatcher: dispatcher,
		Cache:      store,
	})
	require.NoError(t, err)
	t.Cleanup(dispatcher.Wait)

	return &app{router: router, db: db, outbox: outbox, dispatcher: dispatcher}
}

func (a *app) createUser(t *testing.T, username string, staff bool) *models.User {
	hash, err := auth.HashPassword("password")
	require.NoError(t, err)
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsStaff:      staff,
	}
	require.NoError(t, a.db.Create(user).Error)
	return user
}

func (a *app) login(t *testing.T, username string) []*http.Cookie {
	form := url.Values{"username": {username}, "password": {"password"}, "next": {"/my-posts/"}}
	w := webtest.Do(a.router, http.MethodPost, "/login", form, nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/my-posts/", w.Header().Get("Location"))
	return w.Result().Cookies()
}

func TestDraftToPublishedFlow(t *testing.T) {
	a := newApp(t, cache.NewFileStore(t.TempDir(), time.Minute))
	a.createUser(t, "writer", false)
	a.createUser(t, "boss", true)

	writer := a.login(t, "writer")
	form := url.Values{
		"title":             {"Hello world"},
		"short_description": {"first post"},
		"full_description":  {"Some **bold** text"},
	}
	w := webtest.Do(a.router, http.MethodPost, "/posts/create/", form, writer)
	require.Equal(t, http.StatusFound, w.Code)

	var post models.Post
	require.NoError(t, a.db.First(&post).Error)
	assert.False(t, post.Posted)
	assert.Nil(t, post.PublishedDate)

	w = webtest.Do(a.router, http.MethodGet, "/posts/1/", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = webtest.Do(a.router, http.MethodGet, "/posts/", nil, nil)
	assert.NotContains(t, w.Body.String(), "Hello world")

	boss := a.login(t, "boss")
	w = webtest.Do(a.router, http.MethodPost, "/admin/posts/mark-posted", url.Values{"ids": {"1"}}, boss)
	require.Equal(t, http.StatusOK, w.Code)

	w = webtest.Do(a.router, http.MethodGet, "/posts/1/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), "<strong>bold</strong>")

	require.NoError(t, a.db.First(&post, 1).Error)
	require.NotNil(t, post.PublishedDate)
	assert.Contains(t, w.Body.String(), post.PublishedDate.Format("Jan 2, 2006"))

	w = webtest.Do(a.router, http.MethodGet, "/posts/1/", nil, nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	a.dispatcher.Wait()
	msgs := a.outbox.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "New post", msgs[0].Subject)
}

func TestCommentStaysHiddenUntilModerated(t *testing.T) {
	a := newApp(t, nil)
	writer := a.createUser(t, "writer", false)
	a.createUser(t, "boss", true)
	post := dbtest.CreatePost(t, a.db, writer.ID, true)

	form := url.Values{"username": {"reader"}, "text": {"Nice read"}}
	w := webtest.Do(a.router, http.MethodPost, "/posts/1/", form, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/posts/1/", w.Header().Get("Location"))

	var comment models.Comment
	require.NoError(t, a.db.First(&comment).Error)
	assert.Equal(t, post.ID, comment.PostID)
	assert.False(t, comment.Moderated)

	w = webtest.Do(a.router, http.MethodGet, "/posts/1/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Nice read")

	boss := a.login(t, "boss")
	w = webtest.Do(a.router, http.MethodPost, "/admin/comments/mark-moderated", url.Values{"ids": {"1"}}, boss)
	require.Equal(t, http.StatusOK, w.Code)

	w = webtest.Do(a.router, http.MethodGet, "/posts/1/", nil, nil)
	assert.Contains(t, w.Body.String(), "Nice read")

	a.dispatcher.Wait()
	msgs := a.outbox.Messages()
	require.Len(t, msgs, 2)
}

func TestLoggedInRequestsBypassCache(t *testing.T) {
	a := newApp(t, cache.NewFileStore(t.TempDir(), time.Minute))
	a.createUser(t, "writer", false)
	writer := a.login(t, "writer")

	w := webtest.Do(a.router, http.MethodGet, "/posts/", nil, writer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"))

	w = webtest.Do(a.router, http.MethodGet, "/posts/", nil, nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
}

func TestLoginFailure(t *testing.T) {
	a := newApp(t, nil)
	a.createUser(t, "writer", false)

	form := url.Values{"username": {"writer"}, "password": {"wrong"}}
	w := webtest.Do(a.router, http.MethodPost, "/login", form, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter a correct username and password.")
}

func TestRequestID(t *testing.T) {
	a := newApp(t, nil)

	w := webtest.Do(a.router, http.MethodGet, "/", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNoRoute(t *testing.T) {
	a := newApp(t, nil)

	w := webtest.Do(a.router, http.MethodGet, "/nowhere", nil, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")
}
