// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/namegen"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded account gets.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Seed and tests.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	names *namegen.Generator
	hash  string
}

// NewFactory creates a Factory bound to db. A zero opts.RandSeed picks a
// random seed.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	f := &Factory{
		db:    db,
		opts:  opts,
		faker: gofakeit.New(opts.RandSeed),
		names: namegen.NewSeeded(opts.RandSeed),
		hash:  DefaultPassword,
	}
	// One hash for every account keeps large seeds fast.
	if !opts.SkipBcrypt {
		hash, err := auth.HashPassword(DefaultPassword)
		if err != nil {
			return nil, err
		}
		f.hash = hash
	}
	return f, nil
}

// CreateUser constructs and persists a sample account.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	person := f.faker.Person()
	user := &models.User{
		Email:       fmt.Sprintf("%s.%s.%d@example.com", person.FirstName, person.LastName, f.faker.Number(100, 999)),
		Password:    f.hash,
		DisplayName: person.FirstName + " " + person.LastName,
		Role:        models.RoleStandard,
	}
	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		user.ID = uuid.New()
		user.Email = models.NormalizeEmail(user.Email)
		log.Printf("[dry-run] CreateUser: %s", user.Email)
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post by author without persisting it. CreatedAt is
// spread over the last opts.MaxDays days.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	topics := make([]string, 0, 3)
	for i := f.faker.Number(1, 3); i > 0; i-- {
		topics = append(topics, strings.ToLower(f.faker.HackerNoun()))
	}

	post := &models.Post{
		AuthorID:     author.ID,
		Title:        strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 7)), "."),
		Description:  f.faker.Sentence(12),
		BlogContents: f.faker.Paragraph(f.faker.Number(3, 6), 5, 12, "\n\n"),
		Topics:       dedupe(topics),
		IsPublished:  f.faker.Float64Range(0, 1) >= f.opts.DraftRatio,
		CreatedAt:    f.pastTime(),
	}
	post.UpdatedAt = post.CreatedAt
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost builds and persists a post by author.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)
	if f.opts.DryRun {
		post.ID = uuid.New()
		post.Decorate()
		return post, nil
	}
	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment on post, or a reply when parent is set,
// and bumps the matching counter.
func (f *Factory) CreateComment(post *models.Post, parent *models.Comment, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:    post.ID,
		Name:      f.names.Name(),
		Text:      f.faker.Sentence(f.faker.Number(4, 20)),
		ClientIP:  f.faker.IPv4Address(),
		CreatedAt: f.after(post.CreatedAt),
	}
	if parent != nil {
		comment.ParentID = &parent.ID
		comment.CreatedAt = f.after(parent.CreatedAt)
	}
	for _, override := range overrides {
		override(comment)
	}

	if f.opts.DryRun {
		comment.ID = uuid.New()
		bump(post, parent)
		return comment, nil
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if parent != nil {
			return tx.Model(&models.Comment{}).Where("id = ?", parent.ID).
				UpdateColumn("reply_count", gorm.Expr("reply_count + 1")).Error
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	bump(post, parent)
	return comment, nil
}

func bump(post *models.Post, parent *models.Comment) {
	if parent != nil {
		parent.ReplyCount++
		return
	}
	post.CommentCount++
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
	return time.Now().Add(-back).UTC()
}

// after returns a random instant between t and now.
func (f *Factory) after(t time.Time) time.Time {
	span := time.Since(t)
	if span <= time.Minute {
		return t
	}
	return t.Add(time.Duration(f.faker.Float64Range(0, float64(span)))).UTC()
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
