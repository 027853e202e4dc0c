package database

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"blogpress/auth"
	"blogpress/models"
)

const (
	SeedUsers        = 50
	SeedPostsPerUser = 5
	SeedCommentsEach = 5
	SeedPassword     = "password"
)

var (
	firstNames = []string{"ada", "alan", "grace", "linus", "ken", "rob", "barbara", "edsger", "margaret", "donald"}
	lastNames  = []string{"lovelace", "turing", "hopper", "torvalds", "thompson", "pike", "liskov", "dijkstra", "hamilton", "knuth"}
	words      = []string{
		"go", "blog", "post", "channel", "goroutine", "cache", "query", "index", "server", "queue",
		"render", "router", "draft", "comment", "review", "deploy", "config", "session", "template", "schema",
	}
)

// Seed wipes posts and comments and fills the database with demo users, posts
// and comments. Existing users are kept.
func Seed(ctx context.Context, db *gorm.DB, rng *rand.Rand) error {
	hash, err := auth.HashPassword(SeedPassword)
	if err != nil {
		return errors.Wrap(err, "hash seed password")
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Comment{}).Error; err != nil {
			return errors.Wrap(err, "clear comments")
		}
		if err := tx.Where("1 = 1").Delete(&models.Post{}).Error; err != nil {
			return errors.Wrap(err, "clear posts")
		}

		tag := rng.IntN(90000) + 10000
		users := make([]models.User, SeedUsers)
		for i := range users {
			first := firstNames[rng.IntN(len(firstNames))]
			last := lastNames[rng.IntN(len(lastNames))]
			users[i] = models.User{
				Username:     fmt.Sprintf("%s%s%d", first, last, tag+i),
				Email:        fmt.Sprintf("%s.%s%d@example.com", first, last, tag+i),
				FirstName:    strings.ToUpper(first[:1]) + first[1:],
				LastName:     strings.ToUpper(last[:1]) + last[1:],
				PasswordHash: hash,
			}
		}
		if err := tx.CreateInBatches(&users, 100).Error; err != nil {
			return errors.Wrap(err, "create users")
		}
		slog.InfoContext(ctx, "users created", "count", len(users))

		posts := make([]models.Post, 0, SeedUsers*SeedPostsPerUser)
		for _, u := range users {
			for range SeedPostsPerUser {
				posts = append(posts, models.Post{
					AuthorID:         u.ID,
					Title:            sentence(rng, 3),
					ShortDescription: sentence(rng, 5),
					FullDescription:  paragraph(rng),
					Posted:           rng.IntN(2) == 1,
				})
			}
		}
		if err := tx.CreateInBatches(&posts, 100).Error; err != nil {
			return errors.Wrap(err, "create posts")
		}
		slog.InfoContext(ctx, "posts created", "count", len(posts))

		comments := make([]models.Comment, 0, len(posts)*SeedCommentsEach)
		for _, p := range posts {
			for range SeedCommentsEach {
				comments = append(comments, models.Comment{
					PostID:    p.ID,
					Username:  firstNames[rng.IntN(len(firstNames))],
					Text:      sentence(rng, 4),
					Moderated: rng.IntN(2) == 1,
				})
			}
		}
		if err := tx.CreateInBatches(&comments, 100).Error; err != nil {
			return errors.Wrap(err, "create comments")
		}
		slog.InfoContext(ctx, "comments created", "count", len(comments))
		return nil
	})
}

func sentence(rng *rand.Rand, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[rng.IntN(len(words))]
	}
	s := strings.Join(parts, " ")
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

func paragraph(rng *rand.Rand) string {
	lines := make([]string, 3+rng.IntN(3))
	for i := range lines {
		lines[i] = sentence(rng, 6+rng.IntN(6))
	}
	return strings.Join(lines, " ")
}
