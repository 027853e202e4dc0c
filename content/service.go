// Package content implements the blog operations: authoring, commenting,
// moderation and the public read path. Every operation that needs
// authorization takes the caller's auth.Identity explicitly.
package content

import (
	"context"
	"time"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"blogpress/auth"
	"blogpress/models"
	"blogpress/moderation"
)

// Notifier receives creation events. Implementations must not block or fail
// the caller.
type Notifier interface {
	PostCreated(ctx context.Context, post *models.Post)
	CommentCreated(ctx context.Context, comment *models.Comment, author *models.User)
}

type Service struct {
	db       *gorm.DB
	notifier Notifier
	now      func() time.Time
}

func NewService(db *gorm.DB, notifier Notifier) *Service {
	return &Service{db: db, notifier: notifier, now: time.Now}
}

// SetClock replaces the time source used for publish stamps.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// CreatePost stores a new post owned by ident and notifies the administrators.
func (s *Service) CreatePost(ctx context.Context, ident auth.Identity, form PostForm) (*models.Post, error) {
	if !ident.Authenticated() {
		return nil, ErrUnauthorized
	}
	if err := Validate(&form); err != nil {
		return nil, err
	}

	post := models.Post{AuthorID: ident.UserID}
	if err := applyForm(&post, &form); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, errors.Wrap(err, "create post")
	}

	s.notifier.PostCreated(ctx, &post)
	return &post, nil
}

// EditablePost loads a post the caller may change: their own, or any post for
// staff. Anything else is reported as not found.
func (s *Service) EditablePost(ctx context.Context, ident auth.Identity, id uint) (*models.Post, error) {
	if !ident.Authenticated() {
		return nil, ErrUnauthorized
	}
	var post models.Post
	err := s.db.WithContext(ctx).First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load post %d", id)
	}
	if post.AuthorID != ident.UserID && !ident.IsStaff {
		return nil, ErrNotFound
	}
	return &post, nil
}

// UpdatePost rewrites the editable fields, including the author's own posted
// toggle. published_date is never touched here.
func (s *Service) UpdatePost(ctx context.Context, ident auth.Identity, id uint, form PostForm) (*models.Post, error) {
	post, err := s.EditablePost(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	if err := Validate(&form); err != nil {
		return nil, err
	}
	if err := applyForm(post, &form); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(post).
		Select("title", "short_description", "full_description", "image", "posted").
		Updates(post).Error
	if err != nil {
		return nil, errors.Wrapf(err, "update post %d", id)
	}
	return post, nil
}

// DeletePost removes the post and all of its comments in one transaction.
func (s *Service) DeletePost(ctx context.Context, ident auth.Identity, id uint) error {
	post, err := s.EditablePost(ctx, ident, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deletePosts(tx, post.ID)
	})
}

// DeleteUser is staff-only and cascades to the user's posts and their comments.
func (s *Service) DeleteUser(ctx context.Context, ident auth.Identity, id uint) error {
	if !ident.IsStaff {
		return ErrUnauthorized
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.Post{}).Where("author_id = ?", id).Pluck("id", &ids).Error; err != nil {
			return errors.Wrap(err, "list user posts")
		}
		if err := deletePosts(tx, ids...); err != nil {
			return err
		}
		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return errors.Wrapf(result.Error, "delete user %d", id)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func deletePosts(tx *gorm.DB, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("post_id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
		return errors.Wrap(err, "delete comments")
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Post{}).Error; err != nil {
		return errors.Wrap(err, "delete posts")
	}
	return nil
}

// AddComment attaches an unmoderated comment to a visible post and notifies
// the administrators and the post author.
func (s *Service) AddComment(ctx context.Context, postID uint, form CommentForm) (*models.Comment, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Preload("Author").First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load post %d", postID)
	}
	if !moderation.PostVisible(&post) {
		return nil, ErrNotFound
	}
	if err := Validate(&form); err != nil {
		return nil, err
	}

	comment := models.Comment{
		Username: form.Username,
		Text:     form.Text,
		PostID:   post.ID,
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, errors.Wrap(err, "create comment")
	}

	s.notifier.CommentCreated(ctx, &comment, &post.Author)
	return &comment, nil
}

// PublishPost stamps published_date only; posted stays as it is.
func (s *Service) PublishPost(ctx context.Context, ident auth.Identity, id uint) error {
	if !ident.IsStaff {
		return ErrUnauthorized
	}
	n, err := moderation.PublishPost(ctx, s.db, id, s.now())
	if err != nil {
		return errors.Wrapf(err, "publish post %d", id)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPosted is the staff bulk action setting posted and published_date.
func (s *Service) MarkPosted(ctx context.Context, ident auth.Identity, ids []uint) (int64, error) {
	if !ident.IsStaff {
		return 0, ErrUnauthorized
	}
	n, err := moderation.MarkPosted(ctx, s.db, ids, s.now())
	return n, errors.Wrap(err, "mark posted")
}

// MarkModerated is the staff bulk action releasing comments.
func (s *Service) MarkModerated(ctx context.Context, ident auth.Identity, ids []uint) (int64, error) {
	if !ident.IsStaff {
		return 0, ErrUnauthorized
	}
	n, err := moderation.MarkModerated(ctx, s.db, ids)
	return n, errors.Wrap(err, "mark moderated")
}

func applyForm(post *models.Post, form *PostForm) error {
	if err := copier.Copy(post, form); err != nil {
		return errors.Wrap(err, "copy post form")
	}
	moderation.SetPosted(post, form.Posted)
	post.Image = nil
	if form.Image != "" {
		image := form.Image
		post.Image = &image
	}
	return nil
}
