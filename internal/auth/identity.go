package auth

import (
	"inkwell/internal/models"

	"github.com/google/uuid"
)

// Identity is either Anonymous or Authenticated. The zero value is Anonymous.
type Identity struct {
	account *models.User
}

// Anonymous is the identity of a request without a credential.
func Anonymous() Identity {
	return Identity{}
}

// Authenticated wraps a resolved account. The stored copy never carries the
// password hash.
func Authenticated(account *models.User) Identity {
	if account == nil {
		return Identity{}
	}
	cp := *account
	cp.Password = ""
	return Identity{account: &cp}
}

// Account returns the resolved account, if any.
func (id Identity) Account() (*models.User, bool) {
	return id.account, id.account != nil
}

func (id Identity) IsAuthenticated() bool {
	return id.account != nil
}

func (id Identity) IsAdmin() bool {
	return id.account.IsAdmin()
}

// AccountID returns uuid.Nil for anonymous identities.
func (id Identity) AccountID() uuid.UUID {
	if id.account == nil {
		return uuid.Nil
	}
	return id.account.ID
}

func (id Identity) String() string {
	if id.account == nil {
		return "anonymous"
	}
	return "account:" + id.account.ID.String()
}
