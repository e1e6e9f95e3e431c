package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// feedMock records feed events.
type feedMock struct {
	mock.Mock
}

func (m *feedMock) PublishFeed(ctx context.Context, ev notifications.FeedEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *feedMock) expect(eventType notifications.EventType) {
	m.On("PublishFeed", mock.Anything, mock.MatchedBy(func(ev notifications.FeedEvent) bool {
		return ev.Type == eventType
	})).Return(nil).Once()
}

// sequenceNames hands out Name-1, Name-2, ...
type sequenceNames struct {
	n int
}

func (s *sequenceNames) Name() string {
	s.n++
	return fmt.Sprintf("Name-%d", s.n)
}

type fixture struct {
	db       *gorm.DB
	mr       *miniredis.Miniredis
	store    *cache.Store
	issuer   *auth.Issuer
	feed     *feedMock
	names    *sequenceNames
	images   *ImageService
	accounts *AccountService
	posts    *PostService
	comments *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret:         "service-test-secret",
		JWTExpiresIn:      time.Hour,
		JWTIssuer:         "inkwell-api",
		JWTAudience:       "inkwell-client",
		ImageMaxDimension: 64,
	}

	f := &fixture{
		db:     db,
		mr:     mr,
		store:  cache.NewStore(rdb),
		issuer: auth.NewIssuer(cfg),
		feed:   &feedMock{},
		names:  &sequenceNames{},
	}
	postRepo := repository.NewPostRepository(db)
	f.images = NewImageService(repository.NewImageRepository(db), cfg)
	f.accounts = NewAccountService(repository.NewUserRepository(db), f.images, f.issuer, f.store)
	f.posts = NewPostService(postRepo, f.images, f.feed)
	f.comments = NewCommentService(repository.NewCommentRepository(db), postRepo, f.store, f.names, f.feed)
	t.Cleanup(func() { f.feed.AssertExpectations(t) })
	return f
}

func (f *fixture) admin(t *testing.T) auth.Identity {
	t.Helper()
	return auth.Authenticated(testutil.CreateUser(t, f.db, "admin@example.com", models.RoleAdmin))
}

func (f *fixture) standard(t *testing.T) auth.Identity {
	t.Helper()
	return auth.Authenticated(testutil.CreateUser(t, f.db, "reader@example.com", models.RoleStandard))
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	fe, ok := asFieldErrors(err)
	require.True(t, ok, "expected field errors, got %T: %v", err, err)
	out := make(map[string]string, len(fe))
	for _, e := range fe {
		out[e.Path] = e.Msg
	}
	return out
}
