package server

import (
	"net/http"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commentsPath(postID uuid.UUID) string {
	return "/api/posts/" + postID.String() + "/comments"
}

func TestComments_CreateAndReply(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.login(t, "admin@example.com", models.RoleAdmin)
	post := testutil.CreatePost(t, env.db, admin, "Live", true)

	resp, raw := env.do(t, request{method: http.MethodPost, path: commentsPath(post.ID),
		body: map[string]any{"text": "first!"}, clientIP: "10.1.1.1"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))
	top := decode[models.Comment](t, raw)
	assert.NotEmpty(t, top.Name)
	assert.Equal(t, "first!", top.Text)
	assert.NotContains(t, string(raw), "10.1.1.1")

	// Same address, no name: the earlier name sticks.
	resp, raw = env.do(t, request{method: http.MethodPost, path: commentsPath(post.ID),
		body: map[string]any{"text": "again"}, clientIP: "10.1.1.1"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, top.Name, decode[models.Comment](t, raw).Name)

	replyPath := commentsPath(post.ID) + "/" + top.ID.String() + "/reply"
	resp, raw = env.do(t, request{method: http.MethodPost, path: replyPath,
		body: map[string]any{"text": "a reply", "name": "Quinn"}, clientIP: "10.2.2.2"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))
	reply := decode[models.Comment](t, raw)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, top.ID, *reply.ParentID)
	assert.Equal(t, "Quinn", reply.Name)

	resp, _ = env.do(t, request{method: http.MethodPost,
		path: commentsPath(post.ID) + "/" + reply.ID.String() + "/reply",
		body: map[string]any{"text": "too deep"}, clientIP: "10.2.2.2"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, raw = env.do(t, request{method: http.MethodGet, path: "/api/posts/" + post.ID.String()})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	got := decode[models.Post](t, raw)
	assert.Equal(t, 2, got.CommentCount)
}

func TestComments_FormEncoded(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.login(t, "admin@example.com", models.RoleAdmin)
	post := testutil.CreatePost(t, env.db, admin, "Live", true)

	resp, raw := env.do(t, request{method: http.MethodPost, path: commentsPath(post.ID),
		body: "text=hello+there&name=Form", contentType: fiber.MIMEApplicationForm})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))
	c := decode[models.Comment](t, raw)
	assert.Equal(t, "hello there", c.Text)
	assert.Equal(t, "Form", c.Name)
}

func TestComments_Rejections(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.login(t, "admin@example.com", models.RoleAdmin)
	live := testutil.CreatePost(t, env.db, admin, "Live", true)
	draft := testutil.CreatePost(t, env.db, admin, "Draft", false)

	resp, raw := env.do(t, request{method: http.MethodPost, path: commentsPath(live.ID), body: map[string]any{"text": "   "}})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Comment text is required", fieldMessages(t, raw)["text"])

	resp, _ = env.do(t, request{method: http.MethodPost, path: commentsPath(draft.ID), body: map[string]any{"text": "hi"}})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, request{method: http.MethodPost, path: commentsPath(uuid.New()), body: map[string]any{"text": "hi"}})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, raw = env.do(t, request{method: http.MethodPost, path: "/api/posts/xyz/comments", body: map[string]any{"text": "hi"}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid post id", decode[models.ErrorResponse](t, raw).Error)
}

func TestComments_DeleteByOrigin(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.login(t, "admin@example.com", models.RoleAdmin)
	post := testutil.CreatePost(t, env.db, admin, "Live", true)

	resp, raw := env.do(t, request{method: http.MethodPost, path: commentsPath(post.ID),
		body: map[string]any{"text": "mine"}, clientIP: "10.3.3.3"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	comment := decode[models.Comment](t, raw)
	path := commentsPath(post.ID) + "/" + comment.ID.String()

	resp, raw = env.do(t, request{method: http.MethodDelete, path: path, clientIP: "10.9.9.9"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeForbidden, decode[models.ErrorResponse](t, raw).Code)

	resp, raw = env.do(t, request{method: http.MethodDelete, path: path, clientIP: "10.3.3.3"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, comment.ID, decode[models.Comment](t, raw).ID)

	resp, _ = env.do(t, request{method: http.MethodDelete, path: path, clientIP: "10.3.3.3"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestComments_OriginComesFromTrustedProxyOnly(t *testing.T) {
	env := newTestEnv(t)
	addr := env.listen(t)
	_, admin := env.login(t, "admin@example.com", models.RoleAdmin)
	post := testutil.CreatePost(t, env.db, admin, "Live", true)

	resp, raw := env.do(t, request{method: http.MethodPost, path: commentsPath(post.ID),
		body: map[string]any{"text": "behind a proxy"}, clientIP: "10.1.1.1, 172.16.0.9"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))
	comment := decode[models.Comment](t, raw)

	var stored models.Comment
	require.NoError(t, env.db.First(&stored, "id = ?", comment.ID).Error)
	assert.Equal(t, "10.1.1.1", stored.ClientIP, "only the client address is kept")

	// A different proxy chain for the same client is the same commenter.
	resp, raw = env.do(t, request{method: http.MethodPost, path: commentsPath(post.ID),
		body: map[string]any{"text": "new route"}, clientIP: "10.1.1.1, 172.16.0.77"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, comment.Name, decode[models.Comment](t, raw).Name)

	// 127.0.0.1 is not a trusted proxy, so its X-Forwarded-For is ignored.
	path := commentsPath(post.ID) + "/" + comment.ID.String()
	req, err := http.NewRequest(http.MethodDelete, "http://"+addr+path, nil)
	require.NoError(t, err)
	req.Header.Set(fiber.HeaderXForwardedFor, "10.1.1.1")
	client := &http.Client{Timeout: 5 * time.Second}
	forged, err := client.Do(req)
	require.NoError(t, err)
	_ = forged.Body.Close()
	assert.Equal(t, fiber.StatusForbidden, forged.StatusCode)

	resp, _ = env.do(t, request{method: http.MethodDelete, path: path, clientIP: "10.1.1.1"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
