package middleware

import (
	"context"
	"errors"

	"inkwell/internal/auth"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type identityLocalsKey struct{}

// identityKey is the only locals slot an Identity is stored under.
var identityKey = identityLocalsKey{}

// TokenVerifier checks a bearer credential.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AccountResolver loads the account a verified credential names. A missing
// account must be reported as a NOT_FOUND AppError.
type AccountResolver interface {
	Resolve(ctx context.Context, id uuid.UUID) (*models.User, error)
}

const (
	msgMissingCredential = "No authorization header provided"
	msgInvalidCredential = "Invalid or expired token"
	msgAccountGone       = "Account no longer exists"
)

// IdentityFrom returns the identity resolved for this request. Requests that
// never passed an identity middleware are Anonymous.
func IdentityFrom(c *fiber.Ctx) auth.Identity {
	if id, ok := c.Locals(identityKey).(auth.Identity); ok {
		return id
	}
	return auth.Anonymous()
}

// SetIdentity stores id for later handlers.
func SetIdentity(c *fiber.Ctx, id auth.Identity) {
	c.Locals(identityKey, id)
	if account, ok := id.Account(); ok {
		c.SetUserContext(WithAccountID(c.UserContext(), account.ID))
	}
}

// RequireIdentity rejects requests without a valid credential for an existing account.
func RequireIdentity(verifier TokenVerifier, resolver AccountResolver) fiber.Handler {
	return identityHandler(verifier, resolver, true)
}

// OptionalIdentity lets requests without an Authorization header through as
// Anonymous. A credential that is present must still be valid.
func OptionalIdentity(verifier TokenVerifier, resolver AccountResolver) fiber.Handler {
	return identityHandler(verifier, resolver, false)
}

func identityHandler(verifier TokenVerifier, resolver AccountResolver, strict bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			if strict {
				return deny(c, "missing_credential", msgMissingCredential)
			}
			SetIdentity(c, auth.Anonymous())
			return c.Next()
		}

		token, ok := auth.BearerToken(header)
		if !ok {
			return deny(c, "invalid_credential", msgInvalidCredential)
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			return deny(c, "invalid_credential", msgInvalidCredential)
		}

		account, err := resolver.Resolve(c.UserContext(), claims.AccountID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return deny(c, "account_gone", msgAccountGone)
			}
			Logger.ErrorContext(c.UserContext(), "identity resolution failed",
				"account_id", claims.AccountID, "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}

		SetIdentity(c, auth.Authenticated(account))
		return c.Next()
	}
}

// ErrNoIdentity is returned by MustAccount when the request is anonymous.
var ErrNoIdentity = errors.New("request has no authenticated identity")

// MustAccount returns the authenticated account or ErrNoIdentity.
func MustAccount(c *fiber.Ctx) (*models.User, error) {
	account, ok := IdentityFrom(c).Account()
	if !ok {
		return nil, ErrNoIdentity
	}
	return account, nil
}
