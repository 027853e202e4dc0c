// Package moderation holds the publish/moderate state machine for posts and
// comments and the visibility rules derived from it.
package moderation

import (
	"context"
	"time"

	"gorm.io/gorm"

	"blogpress/models"
)

type PostState int

const (
	Draft PostState = iota
	Posted
)

func (s PostState) String() string {
	if s == Posted {
		return "posted"
	}
	return "draft"
}

type CommentState int

const (
	Unmoderated CommentState = iota
	Moderated
)

func (s CommentState) String() string {
	if s == Moderated {
		return "moderated"
	}
	return "unmoderated"
}

func StateOfPost(p *models.Post) PostState {
	if p.Posted {
		return Posted
	}
	return Draft
}

func StateOfComment(c *models.Comment) CommentState {
	if c.Moderated {
		return Moderated
	}
	return Unmoderated
}

// PostVisible reports whether anonymous readers may see p.
func PostVisible(p *models.Post) bool {
	return p.Posted
}

// CommentVisible needs the parent post because a moderated comment under a
// draft stays hidden.
func CommentVisible(c *models.Comment, parent *models.Post) bool {
	return c.Moderated && parent != nil && parent.ID == c.PostID && PostVisible(parent)
}

// UserListable hides staff accounts from public listings.
func UserListable(u *models.User) bool {
	return !u.IsStaff
}

// DefaultPostOrder is the ordering of every unordered post listing.
const DefaultPostOrder = "published_date DESC, id DESC"

// CommentOrder lists comments in the order they were written.
const CommentOrder = "id ASC"

// VisiblePosts is the query form of PostVisible.
func VisiblePosts(db *gorm.DB) *gorm.DB {
	return db.Where("posts.posted = ?", true)
}

// VisibleComments is the query form of CommentVisible. The parent post is
// re-checked in SQL so a later change to posts.posted cannot leak comments.
func VisibleComments(db *gorm.DB) *gorm.DB {
	return db.Where("comments.moderated = ?", true).
		Where("comments.post_id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Post{}).Select("id").Where("posted = ?", true))
}

// ListableUsers is the query form of UserListable.
func ListableUsers(db *gorm.DB) *gorm.DB {
	return db.Where("users.is_staff = ?", false)
}

// SetPosted is the author's own toggle. It never touches published_date.
func SetPosted(p *models.Post, posted bool) {
	p.Posted = posted
}

// PublishPost stamps published_date on one stored post without changing posted.
func PublishPost(ctx context.Context, db *gorm.DB, id uint, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Update("published_date", now)
	return result.RowsAffected, result.Error
}

// MarkPosted is the staff bulk action: every selected post becomes posted and
// gets published_date = now in a single UPDATE. Re-applying it only refreshes
// the timestamp.
func MarkPosted(ctx context.Context, db *gorm.DB, ids []uint, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).Model(&models.Post{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"posted": true, "published_date": now})
	return result.RowsAffected, result.Error
}

// MarkModerated is the one-way staff transition unmoderated -> moderated.
func MarkModerated(ctx context.Context, db *gorm.DB, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).Model(&models.Comment{}).
		Where("id IN ?", ids).
		Update("moderated", true)
	return result.RowsAffected, result.Error
}
