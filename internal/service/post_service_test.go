package service

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/testutil"
	"inkwell/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postInput(title string, published bool) validation.PostInput {
	return validation.PostInput{
		Title:        title,
		Description:  "About " + title,
		BlogContents: "Body of " + title,
		Topics:       []any{"go", "web"},
		IsPublished:  published,
	}
}

func TestPostService_ListHidesDrafts(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	author, _ := admin.Account()
	testutil.CreatePost(t, f.db, author, "Live", true)
	testutil.CreatePost(t, f.db, author, "Draft", false)

	anon, err := f.posts.List(context.Background(), auth.Anonymous())
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.Equal(t, "Live", anon[0].Title)
	require.NotNil(t, anon[0].Author)
	assert.Empty(t, anon[0].Author.Password)

	all, err := f.posts.List(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPostService_GetDraft(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	author, _ := admin.Account()
	draft := testutil.CreatePost(t, f.db, author, "Draft", false)

	_, err := f.posts.Get(context.Background(), auth.Anonymous(), draft.ID)
	assertCode(t, err, models.CodeForbidden)

	_, err = f.posts.Get(context.Background(), f.standard(t), draft.ID)
	assertCode(t, err, models.CodeForbidden)

	got, err := f.posts.Get(context.Background(), admin, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "posts/"+draft.ID.String(), got.URL)
	assert.Empty(t, got.Comments)
}

func TestPostService_CreateRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	req := PostRequest{Input: postInput("Hello", true)}

	_, err := f.posts.Create(context.Background(), auth.Anonymous(), req)
	assertCode(t, err, models.CodeForbidden)

	_, err = f.posts.Create(context.Background(), f.standard(t), req)
	assertCode(t, err, models.CodeForbidden)
}

func TestPostService_Create(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)

	t.Run("published post is announced", func(t *testing.T) {
		f.feed.expect(notifications.EventPostPublished)
		post, err := f.posts.Create(context.Background(), admin, PostRequest{
			Input: postInput("Hello", true),
			Image: &UploadImageInput{Field: "image", Content: testutil.TinyPNG(t, 4, 4)},
		})
		require.NoError(t, err)
		assert.Equal(t, admin.AccountID(), post.AuthorID)
		assert.Equal(t, []string{"go", "web"}, []string(post.Topics))
		assert.True(t, post.IsPublished)
		assert.Zero(t, post.CommentCount)
		require.NotNil(t, post.ImageID)
		assert.Equal(t, "/api/images/"+post.ImageID.String(), post.ImageURL)
	})

	t.Run("draft is silent", func(t *testing.T) {
		in := postInput("Later", false)
		in.IsPublished = nil
		in.Topics = nil
		post, err := f.posts.Create(context.Background(), admin, PostRequest{Input: in})
		require.NoError(t, err)
		assert.False(t, post.IsPublished)
		assert.Empty(t, post.Topics)
		assert.Nil(t, post.ImageID)
	})

	t.Run("all failures are reported together", func(t *testing.T) {
		_, err := f.posts.Create(context.Background(), admin, PostRequest{
			Input: validation.PostInput{
				Title:       " ",
				Topics:      []any{"a", "b", "c", "d", "e", "f"},
				IsPublished: "maybe",
			},
			Image: &UploadImageInput{Field: "image", Content: []byte("%PDF-1.4")},
		})
		errs := fieldErrors(t, err)
		assert.Equal(t, "Title is required", errs["title"])
		assert.Equal(t, "Description is required", errs["description"])
		assert.Equal(t, "Blog contents are required", errs["blogContents"])
		assert.Equal(t, "Maximum 5 topics", errs["topics"])
		assert.Equal(t, "isPublished must be a boolean", errs["isPublished"])
		assert.Equal(t, "Only image uploads are allowed", errs["image"])
	})

	t.Run("too many topics writes nothing", func(t *testing.T) {
		var posts, images int64
		require.NoError(t, f.db.Model(&models.Post{}).Count(&posts).Error)
		require.NoError(t, f.db.Model(&models.Image{}).Count(&images).Error)

		in := postInput("Crowded", true)
		in.Topics = []any{"a", "b", "c", "d", "e", "f"}
		_, err := f.posts.Create(context.Background(), admin, PostRequest{
			Input: in,
			Image: &UploadImageInput{Field: "image", Content: testutil.TinyPNG(t, 8, 8)},
		})
		assert.Equal(t, "Maximum 5 topics", fieldErrors(t, err)["topics"])

		var postsAfter, imagesAfter int64
		require.NoError(t, f.db.Model(&models.Post{}).Count(&postsAfter).Error)
		require.NoError(t, f.db.Model(&models.Image{}).Count(&imagesAfter).Error)
		assert.Equal(t, posts, postsAfter)
		assert.Equal(t, images, imagesAfter)
	})

	t.Run("non-string topics", func(t *testing.T) {
		in := postInput("Typed", false)
		in.Topics = []any{"go", 7}
		_, err := f.posts.Create(context.Background(), admin, PostRequest{Input: in})
		assert.Equal(t, "All topics must be strings", fieldErrors(t, err)["topics"])
	})
}

func TestPostService_Update(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	author, _ := admin.Account()
	draft := testutil.CreatePost(t, f.db, author, "Draft", false)
	ctx := context.Background()

	_, err := f.posts.Update(ctx, f.standard(t), draft.ID, PostRequest{Input: postInput("X", true)})
	assertCode(t, err, models.CodeForbidden)

	time.Sleep(10 * time.Millisecond)
	f.feed.expect(notifications.EventPostPublished)
	updated, err := f.posts.Update(ctx, admin, draft.ID, PostRequest{
		Input: postInput("Final", true),
		Image: &UploadImageInput{Field: "image", Content: testutil.TinyPNG(t, 2, 2)},
	})
	require.NoError(t, err)
	assert.Equal(t, draft.ID, updated.ID)
	assert.Equal(t, draft.AuthorID, updated.AuthorID)
	assert.WithinDuration(t, draft.CreatedAt, updated.CreatedAt, time.Millisecond)
	assert.True(t, updated.UpdatedAt.After(draft.CreatedAt))
	assert.Equal(t, "Final", updated.Title)
	require.NotNil(t, updated.ImageID)

	// Already published: no second announcement; the image is kept.
	kept, err := f.posts.Update(ctx, admin, draft.ID, PostRequest{Input: postInput("Final 2", true)})
	require.NoError(t, err)
	assert.Equal(t, updated.ImageID, kept.ImageID)

	in := postInput("Final 3", true)
	in.ClearImage = true
	cleared, err := f.posts.Update(ctx, admin, draft.ID, PostRequest{Input: in})
	require.NoError(t, err)
	assert.Nil(t, cleared.ImageID)
	assert.Empty(t, cleared.ImageURL)
}

func TestPostService_UpdateMissing(t *testing.T) {
	f := newFixture(t)
	missing := testutil.CreatePost(t, f.db, testutil.CreateUser(t, f.db, "x@example.com", models.RoleAdmin), "Gone", false)
	require.NoError(t, f.db.Delete(missing).Error)

	_, err := f.posts.Update(context.Background(), f.admin(t), missing.ID, PostRequest{Input: postInput("X", false)})
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_Delete(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	author, _ := admin.Account()
	post := testutil.CreatePost(t, f.db, author, "Doomed", true)
	top := testutil.CreateComment(t, f.db, post.ID, nil, "Ann", "10.0.0.1")
	testutil.CreateComment(t, f.db, post.ID, &top.ID, "Bob", "10.0.0.2")
	ctx := context.Background()

	_, err := f.posts.Delete(ctx, auth.Anonymous(), post.ID)
	assertCode(t, err, models.CodeForbidden)

	f.feed.expect(notifications.EventPostDeleted)
	deleted, err := f.posts.Delete(ctx, admin, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Doomed", deleted.Title)

	var remaining int64
	require.NoError(t, f.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	_, err = f.posts.Get(ctx, admin, post.ID)
	assertCode(t, err, models.CodeNotFound)

	_, err = f.posts.Delete(ctx, admin, post.ID)
	assertCode(t, err, models.CodeNotFound)
}
