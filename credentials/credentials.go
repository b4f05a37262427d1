package credentials

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/go-catalog-link/internal/errors"
)

// ErrNotFound means the user has not linked a catalog account.
var ErrNotFound = apperrors.ErrNotFound

// AccessCredential is the OAuth access token pair obtained for a user at the end of
// the handshake. There is at most one per user.
type AccessCredential struct {
	UserID            string    `json:"user_id"`
	AccessToken       string    `json:"access_token"`
	AccessTokenSecret string    `json:"access_token_secret"`
	LinkedAt          time.Time `json:"linked_at"`
}

// Repo persists access credentials. Upsert overwrites any existing credential of the
// same user; Get returns ErrNotFound when there is none.
type Repo interface {
	Get(ctx context.Context, userID string) (*AccessCredential, error)
	Upsert(ctx context.Context, credential AccessCredential) error
	Delete(ctx context.Context, userID string) error
}
