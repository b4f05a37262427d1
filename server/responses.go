package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-catalog-link/catalog"
	apperrors "github.com/jrsteele09/go-catalog-link/internal/errors"
	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, statusCode int, errorCode, description string) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// writeServiceError maps a domain error to a response. Upstream payloads are logged,
// never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())
	var upstream *catalog.UpstreamError

	switch {
	case apperrors.Is(err, apperrors.ErrUpstreamAuth) || catalog.IsUnauthorized(err):
		logger.Warn().Err(err).Msg("catalog rejected the credentials")
		writeJSONError(w, http.StatusUnauthorized, "reconnect_required", "reconnect your account")
	case catalog.IsRateLimited(err):
		logger.Warn().Err(err).Msg("catalog rate limit")
		writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "try again shortly")
	case apperrors.Is(err, apperrors.ErrSessionExpired):
		writeJSONError(w, http.StatusGone, "session_expired", "the authorization expired, connect your account again")
	case apperrors.Is(err, apperrors.ErrInvalidChange):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "the change is not valid")
	case apperrors.As(err, &upstream):
		logger.Error().Err(err).Int("upstream_status", upstream.Status).Bool("timeout", upstream.Timeout).Msg("catalog request failed")
		writeJSONError(w, http.StatusBadGateway, "upstream_error", "the catalog service could not complete the request")
	default:
		logger.Error().Err(err).Msg("request failed")
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "could not complete the request")
	}
}
