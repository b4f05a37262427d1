package pending

import "time"

// Entry is an in-flight OAuth request token and the user that started the handshake.
type Entry struct {
	RequestToken       string
	RequestTokenSecret string
	UserID             string
	CreatedAt          time.Time
}

// Repo stores pending authorizations between the redirect to the provider and the
// provider's callback.
type Repo interface {
	// Put registers a new request token. A token can only be registered once.
	Put(token string, entry Entry) error

	// Take atomically removes and returns the pending entry for token. A second Take
	// for the same token reports false.
	Take(token string) (Entry, bool)

	// Consumed returns the entry of a token that has already been taken and has not
	// yet aged out.
	Consumed(token string) (Entry, bool)

	// Restore moves a consumed token back to pending so a failed callback can be
	// retried. It reports false when the token is not consumed or has aged out.
	Restore(token string) bool
}
