// Package dbtest holds fixtures shared by the package tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"blogpress/database"
	"blogpress/models"
)

// Open returns a migrated in-memory database private to t.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	// every pooled connection to :memory: is a separate database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, username string, staff bool) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hashedpassword",
		IsStaff:      staff,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func CreatePost(t testing.TB, db *gorm.DB, authorID uint, posted bool) *models.Post {
	t.Helper()
	var n int64
	db.Model(&models.Post{}).Count(&n)
	post := &models.Post{
		AuthorID:         authorID,
		Title:            fmt.Sprintf("Post %d", n+1),
		ShortDescription: "short",
		FullDescription:  "# Heading\n\nSome **body** text.",
		Posted:           posted,
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}

// CreatePublishedPost creates a posted post with an explicit published_date.
func CreatePublishedPost(t testing.TB, db *gorm.DB, authorID uint, published time.Time) *models.Post {
	t.Helper()
	post := CreatePost(t, db, authorID, true)
	if err := db.Model(post).Update("published_date", published).Error; err != nil {
		t.Fatalf("publish post: %v", err)
	}
	post.PublishedDate = &published
	return post
}

func CreateComment(t testing.TB, db *gorm.DB, postID uint, moderated bool) *models.Comment {
	t.Helper()
	comment := &models.Comment{
		Username:  "visitor",
		Text:      fmt.Sprintf("comment on %d", postID),
		PostID:    postID,
		Moderated: moderated,
	}
	if err := db.Create(comment).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return comment
}
