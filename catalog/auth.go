package catalog

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/go-catalog-link/oauth1"
)

// Authorizer adds credentials to an outgoing request.
type Authorizer interface {
	Authorize(req *http.Request) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(req *http.Request) error

func (f AuthorizerFunc) Authorize(req *http.Request) error {
	return f(req)
}

// OAuthAuthorizer signs each request with a user's access token.
type OAuthAuthorizer struct {
	Signer      *oauth1.Signer
	Token       string
	TokenSecret string
}

func (a OAuthAuthorizer) Authorize(req *http.Request) error {
	if a.Signer == nil {
		return errors.New("oauth authorizer has no signer")
	}
	return a.Signer.SignRequest(req, a.Token, a.TokenSecret, nil)
}

// TokenAuthorizer uses the application's shared personal access token.
type TokenAuthorizer struct {
	Token string
}

func (a TokenAuthorizer) Authorize(req *http.Request) error {
	if a.Token == "" {
		return nil
	}
	req.Header.Set("Authorization", "Discogs token="+a.Token)
	return nil
}
