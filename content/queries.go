package content

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"blogpress/auth"
	"blogpress/models"
	"blogpress/moderation"
	"blogpress/pagination"
)

const (
	PostsPerPage     = 10
	CommentsPerPage  = 2
	UsersPerPage     = 10
	UserPostsPerPage = 5
	DashboardPerPage = 2
	StaffPerPage     = 10
)

type PostDetail struct {
	Post     *models.Post
	Comments *pagination.Page[models.Comment]
}

type UserDetail struct {
	User  *models.User
	Posts *pagination.Page[models.Post]
}

type Dashboard struct {
	Posted *pagination.Page[models.Post]
	Drafts *pagination.Page[models.Post]
}

// ListPublicPosts pages through posted posts, newest publication first.
func (s *Service) ListPublicPosts(ctx context.Context, page string) (*pagination.Page[models.Post], error) {
	q := s.db.Model(&models.Post{}).Scopes(moderation.VisiblePosts)
	p, err := pagination.Paginate[models.Post](ctx, q, page, PostsPerPage, moderation.DefaultPostOrder, "Author")
	return p, errors.Wrap(err, "list posts")
}

// PostDetail returns a visible post and one page of its visible comments.
func (s *Service) PostDetail(ctx context.Context, id uint, page string) (*PostDetail, error) {
	post, err := s.visiblePost(ctx, id)
	if err != nil {
		return nil, err
	}

	q := s.db.Model(&models.Comment{}).
		Scopes(moderation.VisibleComments).
		Where("comments.post_id = ?", post.ID)
	comments, err := pagination.Paginate[models.Comment](ctx, q, page, CommentsPerPage, moderation.CommentOrder)
	if err != nil {
		return nil, errors.Wrapf(err, "list comments of post %d", id)
	}
	return &PostDetail{Post: post, Comments: comments}, nil
}

// ListPublicUsers pages through non-staff accounts.
func (s *Service) ListPublicUsers(ctx context.Context, page string) (*pagination.Page[models.User], error) {
	q := s.db.Model(&models.User{}).Scopes(moderation.ListableUsers)
	p, err := pagination.Paginate[models.User](ctx, q, page, UsersPerPage, "id ASC")
	return p, errors.Wrap(err, "list users")
}

// UserDetail returns a non-staff user and one page of their posted posts.
func (s *Service) UserDetail(ctx context.Context, id uint, page string) (*UserDetail, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load user %d", id)
	}
	if !moderation.UserListable(&user) {
		return nil, ErrNotFound
	}

	q := s.db.Model(&models.Post{}).Scopes(moderation.VisiblePosts).Where("posts.author_id = ?", user.ID)
	posts, err := pagination.Paginate[models.Post](ctx, q, page, UserPostsPerPage, moderation.DefaultPostOrder)
	if err != nil {
		return nil, errors.Wrapf(err, "list posts of user %d", id)
	}
	return &UserDetail{User: &user, Posts: posts}, nil
}

// OwnerDashboard lists the caller's posted posts and drafts side by side. Both
// lists follow the same page number.
func (s *Service) OwnerDashboard(ctx context.Context, ident auth.Identity, page string) (*Dashboard, error) {
	if !ident.Authenticated() {
		return nil, ErrUnauthorized
	}

	own := func(posted bool) *gorm.DB {
		return s.db.Model(&models.Post{}).Where("author_id = ? AND posted = ?", ident.UserID, posted)
	}

	var d Dashboard
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := pagination.Paginate[models.Post](gCtx, own(true), page, DashboardPerPage, moderation.DefaultPostOrder)
		d.Posted = p
		return err
	})
	g.Go(func() error {
		p, err := pagination.Paginate[models.Post](gCtx, own(false), page, DashboardPerPage, moderation.DefaultPostOrder)
		d.Drafts = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "load dashboard")
	}
	return &d, nil
}

// PostFilter narrows the staff post list.
type PostFilter struct {
	Posted   *bool
	AuthorID uint
	Search   string
}

// StaffPosts lists every post, drafts included, for moderation.
func (s *Service) StaffPosts(ctx context.Context, ident auth.Identity, f PostFilter, page string) (*pagination.Page[models.Post], error) {
	if !ident.IsStaff {
		return nil, ErrUnauthorized
	}
	q := s.db.Model(&models.Post{})
	if f.Posted != nil {
		q = q.Where("posted = ?", *f.Posted)
	}
	if f.AuthorID != 0 {
		q = q.Where("author_id = ?", f.AuthorID)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	p, err := pagination.Paginate[models.Post](ctx, q, page, StaffPerPage, moderation.DefaultPostOrder, "Author")
	return p, errors.Wrap(err, "staff posts")
}

// CommentFilter narrows the staff comment list.
type CommentFilter struct {
	Moderated *bool
	PostID    uint
	Search    string
}

// StaffComments lists comments awaiting moderation first.
func (s *Service) StaffComments(ctx context.Context, ident auth.Identity, f CommentFilter, page string) (*pagination.Page[models.Comment], error) {
	if !ident.IsStaff {
		return nil, ErrUnauthorized
	}
	q := s.db.Model(&models.Comment{})
	if f.Moderated != nil {
		q = q.Where("moderated = ?", *f.Moderated)
	}
	if f.PostID != 0 {
		q = q.Where("post_id = ?", f.PostID)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		q = q.Where("LOWER(text) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	p, err := pagination.Paginate[models.Comment](ctx, q, page, StaffPerPage, "moderated ASC, id ASC", "Post")
	return p, errors.Wrap(err, "staff comments")
}

func (s *Service) visiblePost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Scopes(moderation.VisiblePosts).
		Preload("Author").
		First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load post %d", id)
	}
	return &post, nil
}

// SitemapEntries lists what anonymous visitors can reach: posted posts and
// non-staff users.
func (s *Service) SitemapEntries(ctx context.Context) ([]models.Post, []models.User, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Scopes(moderation.VisiblePosts).
		Select("id", "created_date", "published_date").
		Order(moderation.DefaultPostOrder).
		Find(&posts).Error
	if err != nil {
		return nil, nil, errors.Wrap(err, "sitemap posts")
	}

	var users []models.User
	err = s.db.WithContext(ctx).
		Scopes(moderation.ListableUsers).
		Select("id").
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, nil, errors.Wrap(err, "sitemap users")
	}
	return posts, users, nil
}
