package content

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogpress/auth"
	"blogpress/dbtest"
	"blogpress/models"
)

func postIDs(posts []models.Post) []uint {
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func TestListPublicPosts_HidesDrafts(t *testing.T) {
	s, db, _ := setupService(t)
	author := dbtest.CreateUser(t, db, "author", false)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := dbtest.CreatePublishedPost(t, db, author.ID, base)
	newer := dbtest.CreatePublishedPost(t, db, author.ID, base.Add(time.Hour))
	dbtest.CreatePost(t, db, author.ID, false)

	page, err := s.ListPublicPosts(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []uint{newer.ID, older.ID}, postIDs(page.Items))
	assert.Equal(t, int64(2), page.Count)
	assert.Equal(t, "author", page.Items[0].Author.Username)
}

func TestListPublicPosts_Pagination(t *testing.T) {
	s, db, _ := setupService(t)
	author := dbtest.CreateUser(t, db, "author", false)
	for i := 0; i < 25; i++ {
		dbtest.CreatePost(t, db, author.ID, true)
	}
	ctx := context.Background()

	tests := []struct {
		raw    string
		number int
		items  int
	}{
		{"", 1, 10},
		{"2", 2, 10},
		{"3", 3, 5},
		{"99", 3, 5},
		{"0", 1, 10},
		{"-1", 1, 10},
		{"99999999999999999999999", 3, 5},
		{"abc", 1, 10},
		{"last", 3, 5},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			page, err := s.ListPublicPosts(ctx, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.number, page.Number)
			assert.Len(t, page.Items, tt.items)
			assert.Equal(t, 3, page.NumPages)
		})
	}
}

func TestPostDetail(t *testing.T) {
	s, db, _ := setupService(t)
	author := dbtest.CreateUser(t, db, "author", false)
	post := dbtest.CreatePost(t, db, author.ID, true)
	draft := dbtest.CreatePost(t, db, author.ID, false)

	first := dbtest.CreateComment(t, db, post.ID, true)
	dbtest.CreateComment(t, db, post.ID, false)
	second := dbtest.CreateComment(t, db, post.ID, true)
	third := dbtest.CreateComment(t, db, post.ID, true)
	ctx := context.Background()

	detail, err := s.PostDetail(ctx, post.ID, "")
	require.NoError(t, err)
	assert.Equal(t, post.ID, detail.Post.ID)
	assert.Equal(t, "author", detail.Post.Author.Username)
	assert.Equal(t, int64(3), detail.Comments.Count)
	require.Len(t, detail.Comments.Items, 2)
	assert.Equal(t, first.ID, detail.Comments.Items[0].ID)
	assert.Equal(t, second.ID, detail.Comments.Items[1].ID)

	detail, err = s.PostDetail(ctx, post.ID, "2")
	require.NoError(t, err)
	require.Len(t, detail.Comments.Items, 1)
	assert.Equal(t, third.ID, detail.Comments.Items[0].ID)

	_, err = s.PostDetail(ctx, draft.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.PostDetail(ctx, 4242, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostDetail_ModeratedCommentsFollowParent(t *testing.T) {
	s, db, _ := setupService(t)
	staff := dbtest.CreateUser(t, db, "staff", true)
	author := dbtest.CreateUser(t, db, "author", false)
	post := dbtest.CreatePost(t, db, author.ID, true)
	dbtest.CreateComment(t, db, post.ID, true)
	ctx := context.Background()

	_, err := s.UpdatePost(ctx, auth.FromUser(staff), post.ID, PostForm{
		Title:            post.Title,
		ShortDescription: post.ShortDescription,
		Posted:           false,
	})
	require.NoError(t, err)

	_, err = s.PostDetail(ctx, post.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPublicUsers_HidesStaff(t *testing.T) {
	s, db, _ := setupService(t)
	dbtest.CreateUser(t, db, "admin", true)
	alice := dbtest.CreateUser(t, db, "alice", false)
	bob := dbtest.CreateUser(t, db, "bob", false)

	page, err := s.ListPublicUsers(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, page.Items, 2)
	assert.Equal(t, alice.ID, page.Items[0].ID)
	assert.Equal(t, bob.ID, page.Items[1].ID)
}

func TestUserDetail(t *testing.T) {
	s, db, _ := setupService(t)
	staff := dbtest.CreateUser(t, db, "admin", true)
	alice := dbtest.CreateUser(t, db, "alice", false)
	for i := 0; i < 6; i++ {
		dbtest.CreatePost(t, db, alice.ID, true)
	}
	dbtest.CreatePost(t, db, alice.ID, false)
	ctx := context.Background()

	detail, err := s.UserDetail(ctx, alice.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "alice", detail.User.Username)
	assert.Equal(t, int64(6), detail.Posts.Count)
	assert.Len(t, detail.Posts.Items, UserPostsPerPage)
	assert.Equal(t, 2, detail.Posts.NumPages)

	_, err = s.UserDetail(ctx, staff.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOwnerDashboard(t *testing.T) {
	s, db, _ := setupService(t)
	alice := dbtest.CreateUser(t, db, "alice", false)
	bob := dbtest.CreateUser(t, db, "bob", false)
	for i := 0; i < 3; i++ {
		dbtest.CreatePost(t, db, alice.ID, true)
	}
	dbtest.CreatePost(t, db, alice.ID, false)
	dbtest.CreatePost(t, db, bob.ID, false)
	ctx := context.Background()

	_, err := s.OwnerDashboard(ctx, auth.Identity{}, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	d, err := s.OwnerDashboard(ctx, auth.FromUser(alice), "2")
	require.NoError(t, err)

	assert.Equal(t, 2, d.Posted.Number)
	assert.Len(t, d.Posted.Items, 1)
	assert.Equal(t, int64(3), d.Posted.Count)

	// one draft fits on a single page so page 2 clamps back to 1
	assert.Equal(t, 1, d.Drafts.Number)
	require.Len(t, d.Drafts.Items, 1)
	assert.Equal(t, alice.ID, d.Drafts.Items[0].AuthorID)
}

func TestStaffPosts(t *testing.T) {
	s, db, _ := setupService(t)
	staff := dbtest.CreateUser(t, db, "staff", true)
	alice := dbtest.CreateUser(t, db, "alice", false)
	draft := dbtest.CreatePost(t, db, alice.ID, false)
	dbtest.CreatePost(t, db, alice.ID, true)
	dbtest.CreatePost(t, db, staff.ID, true)
	ctx := context.Background()

	_, err := s.StaffPosts(ctx, auth.FromUser(alice), PostFilter{}, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	all, err := s.StaffPosts(ctx, auth.FromUser(staff), PostFilter{}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Count)

	posted := false
	drafts, err := s.StaffPosts(ctx, auth.FromUser(staff), PostFilter{Posted: &posted, AuthorID: alice.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, []uint{draft.ID}, postIDs(drafts.Items))

	found, err := s.StaffPosts(ctx, auth.FromUser(staff), PostFilter{Search: "post 3"}, "")
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Post 3", found.Items[0].Title)
}

func TestStaffComments_UnmoderatedFirst(t *testing.T) {
	s, db, _ := setupService(t)
	staff := dbtest.CreateUser(t, db, "staff", true)
	post := dbtest.CreatePost(t, db, staff.ID, false)
	moderated := dbtest.CreateComment(t, db, post.ID, true)
	pending := dbtest.CreateComment(t, db, post.ID, false)
	ctx := context.Background()

	page, err := s.StaffComments(ctx, auth.FromUser(staff), CommentFilter{}, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, pending.ID, page.Items[0].ID)
	assert.Equal(t, moderated.ID, page.Items[1].ID)

	only := false
	page, err = s.StaffComments(ctx, auth.FromUser(staff), CommentFilter{Moderated: &only, PostID: post.ID}, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, pending.ID, page.Items[0].ID)
}

func TestSitemapEntries(t *testing.T) {
	s, db, _ := setupService(t)
	dbtest.CreateUser(t, db, "admin", true)
	alice := dbtest.CreateUser(t, db, "alice", false)
	visible := dbtest.CreatePost(t, db, alice.ID, true)
	dbtest.CreatePost(t, db, alice.ID, false)

	posts, users, err := s.SitemapEntries(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []uint{visible.ID}, postIDs(posts))
	require.Len(t, users, 1)
	assert.Equal(t, alice.ID, users[0].ID)
}
