package cache

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	AccountKeyPrefix       = "account:%s"
	CommenterNameKeyPrefix = "commenter:name:%s"
)

const (
	AccountTTL       = 5 * time.Minute
	CommenterNameTTL = 24 * time.Hour
)

// AccountKey caches a resolved account (without password hash).
func AccountKey(id uuid.UUID) string {
	return fmt.Sprintf(AccountKeyPrefix, id)
}

// CommenterNameKey caches the display name assigned to a commenter origin.
func CommenterNameKey(origin string) string {
	return fmt.Sprintf(CommenterNameKeyPrefix, origin)
}
