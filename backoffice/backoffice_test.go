package backoffice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"blogpress/cache"
	"blogpress/content"
	"blogpress/dbtest"
	"blogpress/models"
	"blogpress/webtest"
)

type nopNotifier struct{}

func (nopNotifier) PostCreated(context.Context, *models.Post) {}

func (nopNotifier) CommentCreated(context.Context, *models.Comment, *models.User) {}

type fixture struct {
	router *gin.Engine
	db     *gorm.DB
	store  *cache.FileStore
	staff  []*http.Cookie
	user   []*http.Cookie
	author *models.User
}

func setupTest(t *testing.T) *fixture {
	db := dbtest.Open(t)
	store := cache.NewFileStore(t.TempDir(), time.Minute)
	router := webtest.NewRouter(t, db)
	NewBackofficeModule(content.NewService(db, nopNotifier{}), store).RegisterRoutes(router)

	staff := dbtest.CreateUser(t, db, "boss", true)
	author := dbtest.CreateUser(t, db, "writer", false)
	return &fixture{
		router: router,
		db:     db,
		store:  store,
		staff:  webtest.LoginAs(t, router, staff),
		user:   webtest.LoginAs(t, router, author),
		author: author,
	}
}

func decode(t *testing.T, body []byte, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body, v))
}

func TestStaffOnly(t *testing.T) {
	f := setupTest(t)

	w := webtest.Do(f.router, http.MethodGet, "/admin/posts", nil, nil)
	assert.Equal(t, http.StatusFound, w.Code)

	w = webtest.Do(f.router, http.MethodGet, "/admin/posts", nil, f.user)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"staff only"}`, w.Body.String())

	w = webtest.Do(f.router, http.MethodGet, "/admin/posts", nil, f.staff)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListPosts_Filters(t *testing.T) {
	f := setupTest(t)
	draft := dbtest.CreatePost(t, f.db, f.author.ID, false)
	dbtest.CreatePost(t, f.db, f.author.ID, true)

	var page struct {
		Items []postRow `json:"items"`
		Count int64     `json:"count"`
	}

	w := webtest.Do(f.router, http.MethodGet, "/admin/posts?posted=false&author="+strconv.Itoa(int(f.author.ID)), nil, f.staff)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w.Body.Bytes(), &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, draft.ID, page.Items[0].ID)
	assert.Equal(t, "writer", page.Items[0].Author.Username)
	assert.Equal(t, "draft", page.Items[0].State)
	assert.False(t, page.Items[0].Visible)

	w = webtest.Do(f.router, http.MethodGet, "/admin/posts?posted=maybe", nil, f.staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListComments_HiddenUnderDraft(t *testing.T) {
	f := setupTest(t)
	draft := dbtest.CreatePost(t, f.db, f.author.ID, false)
	dbtest.CreateComment(t, f.db, draft.ID, true)

	var page struct {
		Items []commentRow `json:"items"`
	}
	w := webtest.Do(f.router, http.MethodGet, "/admin/comments", nil, f.staff)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w.Body.Bytes(), &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "moderated", page.Items[0].State)
	assert.False(t, page.Items[0].Visible)
}

func TestMarkPosted(t *testing.T) {
	f := setupTest(t)
	a := dbtest.CreatePost(t, f.db, f.author.ID, false)
	b := dbtest.CreatePost(t, f.db, f.author.ID, false)

	form := url.Values{"ids": {strconv.Itoa(int(a.ID)), strconv.Itoa(int(b.ID))}}
	w := webtest.Do(f.router, http.MethodPost, "/admin/posts/mark-posted", form, f.staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":2}`, w.Body.String())

	var posts []models.Post
	f.db.Find(&posts)
	for _, p := range posts {
		assert.True(t, p.Posted)
		assert.NotNil(t, p.PublishedDate)
	}
}

func TestMarkPosted_JSONBody(t *testing.T) {
	f := setupTest(t)
	p := dbtest.CreatePost(t, f.db, f.author.ID, false)

	body := `{"ids":[` + strconv.Itoa(int(p.ID)) + `]}`
	w := webtest.DoJSON(f.router, http.MethodPost, "/admin/posts/mark-posted", body, f.staff)
	require.Equal(t, http.StatusOK, w.Code)

	w = webtest.DoJSON(f.router, http.MethodPost, "/admin/posts/mark-posted", `{"ids":[]}`, f.staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishPost(t *testing.T) {
	f := setupTest(t)
	p := dbtest.CreatePost(t, f.db, f.author.ID, false)

	w := webtest.Do(f.router, http.MethodPost, "/admin/posts/"+strconv.Itoa(int(p.ID))+"/publish", url.Values{}, f.staff)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.Post
	require.NoError(t, f.db.First(&stored, p.ID).Error)
	assert.NotNil(t, stored.PublishedDate)
	assert.False(t, stored.Posted)

	w = webtest.Do(f.router, http.MethodPost, "/admin/posts/999/publish", url.Values{}, f.staff)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePost(t *testing.T) {
	f := setupTest(t)
	p := dbtest.CreatePost(t, f.db, f.author.ID, true)
	dbtest.CreateComment(t, f.db, p.ID, false)

	w := webtest.Do(f.router, http.MethodDelete, "/admin/posts/"+strconv.Itoa(int(p.ID)), nil, f.staff)
	require.Equal(t, http.StatusOK, w.Code)

	var comments int64
	f.db.Model(&models.Comment{}).Count(&comments)
	assert.Zero(t, comments)

	w = webtest.Do(f.router, http.MethodDelete, "/admin/posts/abc", nil, f.staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestComments(t *testing.T) {
	f := setupTest(t)
	p := dbtest.CreatePost(t, f.db, f.author.ID, true)
	done := dbtest.CreateComment(t, f.db, p.ID, true)
	pending := dbtest.CreateComment(t, f.db, p.ID, false)

	var page struct {
		Items []commentRow `json:"items"`
	}
	w := webtest.Do(f.router, http.MethodGet, "/admin/comments", nil, f.staff)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w.Body.Bytes(), &page)
	require.Len(t, page.Items, 2)
	assert.Equal(t, pending.ID, page.Items[0].ID)
	assert.Equal(t, "unmoderated", page.Items[0].State)
	assert.False(t, page.Items[0].Visible)
	assert.Equal(t, done.ID, page.Items[1].ID)
	assert.Equal(t, "moderated", page.Items[1].State)
	assert.True(t, page.Items[1].Visible)

	form := url.Values{"ids": {strconv.Itoa(int(pending.ID))}}
	w = webtest.Do(f.router, http.MethodPost, "/admin/comments/mark-moderated", form, f.staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":1}`, w.Body.String())

	w = webtest.Do(f.router, http.MethodGet, "/admin/comments?moderated=false", nil, f.staff)
	decode(t, w.Body.Bytes(), &page)
	assert.Empty(t, page.Items)
}

func TestDeleteUser(t *testing.T) {
	f := setupTest(t)
	p := dbtest.CreatePost(t, f.db, f.author.ID, true)
	dbtest.CreateComment(t, f.db, p.ID, true)

	w := webtest.Do(f.router, http.MethodDelete, "/admin/users/"+strconv.Itoa(int(f.author.ID)), nil, f.staff)
	require.Equal(t, http.StatusOK, w.Code)

	var posts int64
	f.db.Model(&models.Post{}).Count(&posts)
	assert.Zero(t, posts)

	w = webtest.Do(f.router, http.MethodDelete, "/admin/users/"+strconv.Itoa(int(f.author.ID)), nil, f.staff)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearCache(t *testing.T) {
	f := setupTest(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, "page", &cache.Entry{Body: []byte("x")}))

	w := webtest.Do(f.router, http.MethodPost, "/admin/cache/clear", url.Values{}, f.staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cleared":true}`, w.Body.String())

	_, found := f.store.Get(ctx, "page")
	assert.False(t, found)
}
