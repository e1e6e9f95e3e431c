package seed

import (
	"fmt"
	"log"

	"inkwell/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminEmail is the seeded admin account.
const AdminEmail = "admin@inkwell.local"

// Options configures Seed and the Factory.
type Options struct {
	NumUsers int
	NumPosts int
	// MaxComments caps top-level comments per published post; each may get
	// up to MaxReplies replies.
	MaxComments int
	MaxReplies  int
	// DraftRatio is the share of posts left unpublished, in [0,1].
	DraftRatio float64
	MaxDays    int
	Clean      bool
	DryRun     bool
	SkipBcrypt bool
	RandSeed   int64
}

// DefaultOptions is a small but lively blog.
func DefaultOptions() Options {
	return Options{
		NumUsers:    10,
		NumPosts:    20,
		MaxComments: 6,
		MaxReplies:  3,
		DraftRatio:  0.2,
		MaxDays:     90,
	}
}

// Summary counts what Seed created.
type Summary struct {
	Users    int
	Posts    int
	Drafts   int
	Comments int
	Replies  int
}

// Seed populates the database with an admin, readers, posts by the admin and
// anonymous comment threads on the published posts.
func Seed(db *gorm.DB, opts Options) (Summary, error) {
	var sum Summary
	log.Printf("seeding %d users and %d posts", opts.NumUsers, opts.NumPosts)

	if opts.Clean && !opts.DryRun {
		if err := clearData(db); err != nil {
			return sum, fmt.Errorf("clear data: %w", err)
		}
	}

	f, err := NewFactory(db, opts)
	if err != nil {
		return sum, err
	}

	admin, err := ensureAdmin(db, f)
	if err != nil {
		return sum, fmt.Errorf("admin: %w", err)
	}

	for i := 0; i < opts.NumUsers; i++ {
		if _, err := f.CreateUser(); err != nil {
			return sum, fmt.Errorf("create user: %w", err)
		}
		sum.Users++
	}

	for i := 0; i < opts.NumPosts; i++ {
		post, err := f.CreatePost(admin)
		if err != nil {
			return sum, fmt.Errorf("create post: %w", err)
		}
		sum.Posts++
		if !post.IsPublished {
			sum.Drafts++
			continue
		}
		if err := seedThread(f, post, opts, &sum); err != nil {
			return sum, err
		}
	}

	log.Printf("seeded users=%d posts=%d drafts=%d comments=%d replies=%d",
		sum.Users, sum.Posts, sum.Drafts, sum.Comments, sum.Replies)
	return sum, nil
}

func seedThread(f *Factory, post *models.Post, opts Options, sum *Summary) error {
	for c := f.faker.Number(0, max(opts.MaxComments, 0)); c > 0; c-- {
		top, err := f.CreateComment(post, nil)
		if err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		sum.Comments++
		for r := f.faker.Number(0, max(opts.MaxReplies, 0)); r > 0; r-- {
			if _, err := f.CreateComment(post, top); err != nil {
				return fmt.Errorf("create reply: %w", err)
			}
			sum.Replies++
		}
	}
	return nil
}

// ensureAdmin returns the admin account, creating it on first run.
func ensureAdmin(db *gorm.DB, f *Factory) (*models.User, error) {
	if !f.opts.DryRun {
		var existing models.User
		err := db.Where("email = ?", AdminEmail).Limit(1).Find(&existing).Error
		if err != nil {
			return nil, err
		}
		if existing.ID != uuid.Nil {
			return &existing, nil
		}
	}
	return f.CreateUser(func(u *models.User) {
		u.Email = AdminEmail
		u.DisplayName = "Inkwell Admin"
		u.Role = models.RoleAdmin
	})
}

func clearData(db *gorm.DB) error {
	log.Println("clearing existing data")
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Comment{}, &models.Post{}, &models.User{}, &models.Image{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
