package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-catalog-link/linking"
	"github.com/rs/zerolog"
)

type connectResponse struct {
	AuthorizeURL string `json:"authorize_url"`
}

// CatalogConnectHandler starts linking the caller's catalog account.
func (s *Server) CatalogConnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
			return
		}

		authorizeURL, err := s.services.Linking.StartHandshake(r.Context(), user.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, connectResponse{AuthorizeURL: authorizeURL})
	}
}

// CatalogDisconnectHandler drops the caller's stored catalog credential. The next
// connect stores fresh tokens.
func (s *Server) CatalogDisconnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
			return
		}

		if err := s.services.Linking.Disconnect(r.Context(), user.ID); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CatalogCallbackHandler receives the provider redirect and sends the browser on to
// the completion page with the outcome.
func (s *Server) CatalogCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		cb := linking.Callback{
			RequestToken: query.Get("oauth_token"),
			Verifier:     query.Get("oauth_verifier"),
		}
		// Discogs reports a refusal as denied=<request token>.
		if denied := query.Get("denied"); denied != "" {
			cb.Denied = true
			if cb.RequestToken == "" {
				cb.RequestToken = denied
			}
		}

		outcome, err := s.services.Linking.HandleCallback(r.Context(), cb)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		zerolog.Ctx(r.Context()).Info().Str("outcome", string(outcome)).Msg("catalog callback handled")
		http.Redirect(w, r, s.completionRedirect(outcome), http.StatusFound)
	}
}

func (s *Server) completionRedirect(outcome linking.Outcome) string {
	u, err := url.Parse(s.completionURL)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	query := u.Query()
	query.Set("status", string(outcome))
	u.RawQuery = query.Encode()
	return u.String()
}

// CatalogStatusHandler reports whether the caller has linked a catalog account.
func (s *Server) CatalogStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing user")
			return
		}

		status, err := s.services.Linking.Status(r.Context(), user.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}
