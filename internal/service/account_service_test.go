package service

import (
	"context"
	"strings"
	"testing"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/testutil"
	"inkwell/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, f *fixture, email, password string) string {
	t.Helper()
	token, err := f.accounts.Register(context.Background(), RegisterRequest{
		Input: validation.RegisterInput{Email: email, Password: password, DisplayName: "Ann"},
	})
	require.NoError(t, err)
	return token
}

func TestAccountService_RegisterLoginResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token := register(t, f, "A@B.com", "secret1")
	claims, err := f.issuer.Verify(token)
	require.NoError(t, err)

	account, err := f.accounts.Resolve(ctx, claims.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", account.Email, "email is stored lowercased")
	assert.Equal(t, "Ann", account.DisplayName)
	assert.Equal(t, models.RoleStandard, account.Role)
	assert.Empty(t, account.Password)
	assert.True(t, f.mr.Exists(cache.AccountKey(claims.AccountID)), "resolution is cached")

	login, err := f.accounts.Login(ctx, validation.LoginInput{Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	loginClaims, err := f.issuer.Verify(login)
	require.NoError(t, err)
	assert.Equal(t, claims.AccountID, loginClaims.AccountID)
}

func TestAccountService_RegisterRejections(t *testing.T) {
	f := newFixture(t)
	register(t, f, "taken@example.com", "secret1")

	t.Run("every field failure is reported", func(t *testing.T) {
		_, err := f.accounts.Register(context.Background(), RegisterRequest{
			Input: validation.RegisterInput{Email: "nope", Password: "123", DisplayName: "  "},
		})
		errs := fieldErrors(t, err)
		assert.Equal(t, "Invalid email", errs["email"])
		assert.Equal(t, "Password must be at least 6 characters", errs["password"])
		assert.Equal(t, "Display name is required", errs["displayName"])
	})

	t.Run("email taken", func(t *testing.T) {
		_, err := f.accounts.Register(context.Background(), RegisterRequest{
			Input: validation.RegisterInput{Email: "TAKEN@example.com", Password: "secret1", DisplayName: "B"},
		})
		assert.Equal(t, "Email is already taken", fieldErrors(t, err)["email"])
	})

	t.Run("upload problems join the other failures", func(t *testing.T) {
		_, err := f.accounts.Register(context.Background(), RegisterRequest{
			Input: validation.RegisterInput{Email: "new@example.com", Password: "1", DisplayName: "B"},
			Pfp:   &UploadImageInput{Field: "pfp", Filename: "notes.txt", Content: []byte("plain text")},
		})
		errs := fieldErrors(t, err)
		assert.Equal(t, "Only image uploads are allowed", errs["pfp"])
		assert.Contains(t, errs, "password")
	})
}

func TestAccountService_RegisterStoresPicture(t *testing.T) {
	f := newFixture(t)
	token, err := f.accounts.Register(context.Background(), RegisterRequest{
		Input: validation.RegisterInput{Email: "pic@example.com", Password: "secret1", DisplayName: "Pic"},
		Pfp:   &UploadImageInput{Field: "pfp", Filename: "me.png", Content: testutil.TinyPNG(t, 200, 100)},
	})
	require.NoError(t, err)
	claims, err := f.issuer.Verify(token)
	require.NoError(t, err)

	account, err := f.accounts.Resolve(context.Background(), claims.AccountID)
	require.NoError(t, err)
	require.NotNil(t, account.PfpID)
	assert.Equal(t, "/api/images/"+account.PfpID.String(), account.PfpURL)

	img, err := f.images.Get(context.Background(), *account.PfpID)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", img.ContentType)
	assert.Equal(t, 64, img.Width)
	assert.Equal(t, 32, img.Height)
}

func TestAccountService_LoginRejections(t *testing.T) {
	f := newFixture(t)
	register(t, f, "a@b.com", "secret1")

	tests := []struct {
		name string
		in   validation.LoginInput
		path string
		msg  string
	}{
		{"unknown email", validation.LoginInput{Email: "x@b.com", Password: "secret1"}, "email", "User with the specified email does not exist."},
		{"wrong password", validation.LoginInput{Email: "a@b.com", Password: "secret2"}, "password", "Incorrect password"},
		{"malformed email", validation.LoginInput{Email: "ab", Password: "secret1"}, "email", "Invalid email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.accounts.Login(context.Background(), tt.in)
			errs := fieldErrors(t, err)
			assert.Equal(t, tt.msg, errs[tt.path])
			assert.Len(t, errs, 1)
		})
	}
}

func TestAccountService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := register(t, f, "a@b.com", "secret1")
	claims, err := f.issuer.Verify(token)
	require.NoError(t, err)

	account, err := f.accounts.Resolve(ctx, claims.AccountID)
	require.NoError(t, err)
	id := auth.Authenticated(account)
	require.True(t, f.mr.Exists(cache.AccountKey(account.ID)))

	t.Run("anonymous is forbidden", func(t *testing.T) {
		_, err := f.accounts.UpdateProfile(ctx, auth.Anonymous(), ProfileRequest{})
		assertCode(t, err, models.CodeForbidden)
	})

	t.Run("wrong old password", func(t *testing.T) {
		_, err := f.accounts.UpdateProfile(ctx, id, ProfileRequest{
			Input: validation.ProfileInput{NewPassword: "secret2", OldPassword: "wrong!"},
		})
		assert.Equal(t, "Incorrect password", fieldErrors(t, err)["oldPassword"])
	})

	t.Run("name, password and picture", func(t *testing.T) {
		name := "  Annie "
		updated, err := f.accounts.UpdateProfile(ctx, id, ProfileRequest{
			Input: validation.ProfileInput{DisplayName: &name, NewPassword: "secret2", OldPassword: "secret1"},
			Pfp:   &UploadImageInput{Field: "pfp", Content: testutil.TinyPNG(t, 8, 8)},
		})
		require.NoError(t, err)
		assert.Equal(t, "Annie", updated.DisplayName)
		assert.Empty(t, updated.Password)
		require.NotNil(t, updated.PfpID)
		assert.False(t, f.mr.Exists(cache.AccountKey(account.ID)), "cached account is invalidated")

		_, err = f.accounts.Login(ctx, validation.LoginInput{Email: "a@b.com", Password: "secret2"})
		assert.NoError(t, err)
	})

	t.Run("pfp=null clears the picture", func(t *testing.T) {
		updated, err := f.accounts.UpdateProfile(ctx, id, ProfileRequest{
			Input: validation.ProfileInput{ClearPfp: true},
		})
		require.NoError(t, err)
		assert.Nil(t, updated.PfpID)

		resolved, err := f.accounts.Resolve(ctx, account.ID)
		require.NoError(t, err)
		assert.Nil(t, resolved.PfpID)
		assert.Equal(t, "Annie", resolved.DisplayName)
	})

	t.Run("display name cannot be blanked", func(t *testing.T) {
		blank := strings.Repeat(" ", 3)
		_, err := f.accounts.UpdateProfile(ctx, id, ProfileRequest{
			Input: validation.ProfileInput{DisplayName: &blank},
		})
		assert.Equal(t, "Display name is required", fieldErrors(t, err)["displayName"])
	})
}

func TestAccountService_ResolveMissingAccount(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "gone@example.com", models.RoleStandard)
	require.NoError(t, f.db.Delete(user).Error)

	_, err := f.accounts.Resolve(context.Background(), user.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestAccountService_SetRoleRefreshesResolvedRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, "chief@example.com", models.RoleAdmin)

	before, err := f.accounts.Resolve(ctx, admin.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, before.Role)
	require.True(t, f.mr.Exists(cache.AccountKey(admin.ID)))

	demoted, err := f.accounts.SetRole(ctx, "CHIEF@example.com", models.RoleStandard)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStandard, demoted.Role)
	assert.False(t, f.mr.Exists(cache.AccountKey(admin.ID)))

	after, err := f.accounts.Resolve(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStandard, after.Role)
	assert.False(t, after.IsAdmin())

	_, err = f.accounts.SetRole(ctx, "ghost@example.com", models.RoleAdmin)
	assertCode(t, err, models.CodeNotFound)
}
