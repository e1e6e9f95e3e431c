package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
paths:
  /posts:
    get:
      responses:
        "200": {description: OK}
    post:
      responses:
        "201": {description: Created}
        "403": {description: Forbidden}
  /users/login:
    post:
      responses:
        "200": {description: OK}
`

func TestCompare(t *testing.T) {
	base, err := parseSpec([]byte(baseYAML))
	require.NoError(t, err)

	t.Run("identical", func(t *testing.T) {
		assert.Empty(t, compare(base, base))
	})

	t.Run("removals", func(t *testing.T) {
		revision, err := parseSpec([]byte(`{"paths": {"/posts": {"get": {"responses": {}}, "post": {"responses": {"201": {}}}}}}`))
		require.NoError(t, err)
		assert.Equal(t, []string{
			"removed path: /users/login",
			"removed response code: GET /posts -> 200",
			"removed response code: POST /posts -> 403",
		}, compare(base, revision))
	})

	t.Run("additions are compatible", func(t *testing.T) {
		revision, err := parseSpec([]byte(baseYAML + `
  /users:
    get:
      responses:
        "200": {description: OK}
`))
		require.NoError(t, err)
		assert.Empty(t, compare(base, revision))
	})
}

func TestParseSpec_RequiresPaths(t *testing.T) {
	_, err := parseSpec([]byte("swagger: '2.0'"))
	assert.Error(t, err)
}

func TestCompiledDocument(t *testing.T) {
	out, err := compiledYAML()
	require.NoError(t, err)

	spec, err := parseSpec(out)
	require.NoError(t, err)
	require.Contains(t, spec.Paths, "/posts/{postId}/comments")
	assert.Contains(t, spec.Paths["/posts"]["post"].Responses, "201")

	// The compiled document is compatible with itself after a YAML round trip.
	assert.Empty(t, compare(spec, spec))
}
