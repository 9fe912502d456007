package seed

import (
	"context"
	"fmt"
	"log"

	"agora/internal/models"
	"agora/internal/repository"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// Seed populates the database with test data: users, posts, threaded
// comments, reactions, and recounted counter rows.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("🌱 Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	f := NewFactory(db)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, user)
	}
	// First seeded user doubles as the moderation account.
	if len(users) > 0 {
		if err := db.Model(users[0]).Update("is_admin", true).Error; err != nil {
			return fmt.Errorf("failed to promote admin user: %w", err)
		}
	}
	log.Printf("✓ %d test users created", len(users))

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		posts = append(posts, f.BuildPost(users[f.r.Intn(len(users))]))
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("✓ %d posts created", len(posts))

	comments, err := seedComments(f, posts, users)
	if err != nil {
		return fmt.Errorf("failed to create comments: %w", err)
	}
	log.Printf("✓ %d comments created", len(comments))

	reactions, err := seedReactions(f, posts, comments, users)
	if err != nil {
		return fmt.Errorf("failed to create reactions: %w", err)
	}
	log.Printf("✓ %d reactions created", reactions)

	if err := repairCounters(db, posts, comments); err != nil {
		return fmt.Errorf("failed to recount stats: %w", err)
	}
	log.Println("✓ denormalized counters recounted")

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	sql := `TRUNCATE TABLE reactions, target_stats, comments, posts, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

// seedComments creates top-level comments on roughly half the posts, with a
// scattering of replies.
func seedComments(f *Factory, posts []*models.Post, users []*models.User) ([]*models.Comment, error) {
	var comments []*models.Comment
	for _, post := range posts {
		if f.r.Intn(2) == 0 {
			continue
		}
		numTopLevel := f.r.Intn(5) + 1
		for i := 0; i < numTopLevel; i++ {
			parent, err := f.CreateComment(post, users[f.r.Intn(len(users))], nil)
			if err != nil {
				return nil, err
			}
			comments = append(comments, parent)

			numReplies := f.r.Intn(4)
			for j := 0; j < numReplies; j++ {
				reply, err := f.CreateComment(post, users[f.r.Intn(len(users))], parent)
				if err != nil {
					return nil, err
				}
				comments = append(comments, reply)
			}
		}
	}
	return comments, nil
}

func seedReactions(f *Factory, posts []*models.Post, comments []*models.Comment, users []*models.User) (int, error) {
	count := 0
	for _, post := range posts {
		numReactions := f.r.Intn(len(users)/2 + 1)
		for _, userIdx := range f.r.Perm(len(users))[:numReactions] {
			if _, err := f.CreateReaction(users[userIdx].ID, models.TargetPost, post.ID); err != nil {
				return count, err
			}
			count++
		}
	}
	for _, comment := range comments {
		if f.r.Intn(3) != 0 {
			continue
		}
		if _, err := f.CreateReaction(users[f.r.Intn(len(users))].ID, models.TargetComment, comment.ID); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// repairCounters derives reply_count and all target_stats rows from the
// seeded source-of-truth records, then sprinkles in synthetic view counts.
func repairCounters(db *gorm.DB, posts []*models.Post, comments []*models.Comment) error {
	err := db.Exec(`UPDATE comments SET reply_count = (
		SELECT COUNT(*) FROM comments r
		WHERE r.parent_comment_id = comments.id AND r.status = 'active')`).Error
	if err != nil {
		return err
	}

	ctx := context.Background()
	f := NewFactory(db)
	statsRepo := repository.NewStatsRepository(db)

	for _, post := range posts {
		if _, err := statsRepo.Recount(ctx, models.TargetPost, post.ID); err != nil {
			return err
		}
		views := models.StatsDelta{Views: int64(f.r.Intn(500))}
		if err := statsRepo.Increment(ctx, models.TargetPost, post.ID, views); err != nil {
			return err
		}
	}
	for _, comment := range comments {
		if _, err := statsRepo.Recount(ctx, models.TargetComment, comment.ID); err != nil {
			return err
		}
	}
	return nil
}
