package linking

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-catalog-link/catalog"
	"github.com/jrsteele09/go-catalog-link/credentials"
	apperrors "github.com/jrsteele09/go-catalog-link/internal/errors"
	"github.com/jrsteele09/go-catalog-link/linking/pending"
	"github.com/jrsteele09/go-catalog-link/oauth1"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout   = 15 * time.Second
	maxTokenResponse = 64 << 10
)

// Outcome is the result of a provider callback.
type Outcome string

const (
	OutcomeConnected        Outcome = "connected"
	OutcomeAlreadyConnected Outcome = "already_connected"
	OutcomeDenied           Outcome = "denied"
)

// Callback carries the parameters the provider appends to the redirect back to us.
type Callback struct {
	RequestToken string
	Verifier     string
	Denied       bool
}

// Status describes whether a user has linked a catalog account.
type Status struct {
	Connected   bool       `json:"connected"`
	AccountName string     `json:"account_name,omitempty"`
	LinkedAt    *time.Time `json:"linked_at,omitempty"`
}

// Endpoints are the provider URLs of the three-legged handshake.
type Endpoints struct {
	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string
	CallbackURL     string
}

// EndpointsFor derives the Discogs-style endpoint layout from the API base URL.
func EndpointsFor(apiBaseURL, authorizeURL, callbackURL string) Endpoints {
	base := strings.TrimSuffix(apiBaseURL, "/")
	return Endpoints{
		RequestTokenURL: base + "/oauth/request_token",
		AuthorizeURL:    authorizeURL,
		AccessTokenURL:  base + "/oauth/access_token",
		CallbackURL:     callbackURL,
	}
}

// IdentityFunc resolves the provider account name behind an access credential.
type IdentityFunc func(ctx context.Context, credential credentials.AccessCredential) (catalog.Identity, error)

// Service runs the OAuth 1.0a handshake that links a user to a catalog account.
type Service struct {
	signer      *oauth1.Signer
	endpoints   Endpoints
	pending     pending.Repo
	credentials credentials.Repo
	identity    IdentityFunc
	httpClient  *http.Client
	nowTime     func() time.Time
	logger      zerolog.Logger
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithHTTPClient replaces the client used for the token endpoints. Its Timeout bounds
// each exchange.
func WithHTTPClient(hc *http.Client) ServiceOption {
	return func(s *Service) {
		s.httpClient = hc
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithIdentity sets how Status resolves the linked account name.
func WithIdentity(identity IdentityFunc) ServiceOption {
	return func(s *Service) {
		s.identity = identity
	}
}

func NewService(
	signer *oauth1.Signer,
	endpoints Endpoints,
	pendingRepo pending.Repo,
	credentialRepo credentials.Repo,
	options ...ServiceOption,
) (*Service, error) {
	if signer == nil {
		return nil, errors.New("[linking.NewService] signer is required")
	}
	if pendingRepo == nil {
		return nil, errors.New("[linking.NewService] pending repo is required")
	}
	if credentialRepo == nil {
		return nil, errors.New("[linking.NewService] credential repo is required")
	}
	if endpoints.RequestTokenURL == "" || endpoints.AuthorizeURL == "" || endpoints.AccessTokenURL == "" {
		return nil, errors.New("[linking.NewService] provider endpoints are required")
	}
	if endpoints.CallbackURL == "" {
		return nil, errors.New("[linking.NewService] callback URL is required")
	}

	s := &Service{
		signer:      signer,
		endpoints:   endpoints,
		pending:     pendingRepo,
		credentials: credentialRepo,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		nowTime:     time.Now,
		logger:      log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// StartHandshake obtains a request token for userID and returns the provider URL the
// user must be redirected to.
func (s *Service) StartHandshake(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("[Service.StartHandshake] user id is required")
	}

	token, secret, err := s.exchange(ctx, s.endpoints.RequestTokenURL, "", "", map[string]string{
		oauth1.ParamCallback: s.endpoints.CallbackURL,
	})
	if err != nil {
		return "", errors.Wrap(err, "[Service.StartHandshake] request token")
	}

	if err := s.pending.Put(token, pending.Entry{
		RequestTokenSecret: secret,
		UserID:             userID,
		CreatedAt:          s.nowTime(),
	}); err != nil {
		return "", errors.Wrap(err, "[Service.StartHandshake] store pending authorization")
	}

	authorizeURL, err := url.Parse(s.endpoints.AuthorizeURL)
	if err != nil {
		return "", errors.Wrap(err, "[Service.StartHandshake] parse authorize URL")
	}
	query := authorizeURL.Query()
	query.Set(oauth1.ParamToken, token)
	authorizeURL.RawQuery = query.Encode()

	s.logger.Info().Str("user_id", userID).Msg("catalog handshake started")
	return authorizeURL.String(), nil
}

// HandleCallback completes the handshake for the request token in cb.
//
// A callback whose token was already consumed reports OutcomeAlreadyConnected when
// the owner is now linked, so duplicate redirects are harmless; any other unknown
// token is ErrSessionExpired.
func (s *Service) HandleCallback(ctx context.Context, cb Callback) (Outcome, error) {
	if cb.RequestToken == "" {
		return "", apperrors.ErrSessionExpired
	}

	entry, ok := s.pending.Take(cb.RequestToken)
	if !ok {
		if consumed, found := s.pending.Consumed(cb.RequestToken); found {
			linked, err := s.isLinked(ctx, consumed.UserID)
			if err != nil {
				return "", errors.Wrap(err, "[Service.HandleCallback] check existing credential")
			}
			if linked {
				return OutcomeAlreadyConnected, nil
			}
		}
		return "", apperrors.ErrSessionExpired
	}

	if cb.Denied {
		s.logger.Info().Str("user_id", entry.UserID).Msg("catalog authorization denied by user")
		return OutcomeDenied, nil
	}
	if cb.Verifier == "" {
		s.release(cb.RequestToken)
		return "", errors.Wrap(apperrors.ErrUpstreamAuth, "[Service.HandleCallback] missing oauth_verifier")
	}

	linked, err := s.isLinked(ctx, entry.UserID)
	if err != nil {
		s.release(cb.RequestToken)
		return "", errors.Wrap(err, "[Service.HandleCallback] check existing credential")
	}
	if linked {
		return OutcomeAlreadyConnected, nil
	}

	accessToken, accessSecret, err := s.exchange(ctx, s.endpoints.AccessTokenURL, entry.RequestToken, entry.RequestTokenSecret, map[string]string{
		oauth1.ParamVerifier: cb.Verifier,
	})
	if err != nil {
		s.release(cb.RequestToken)
		return "", errors.Wrap(err, "[Service.HandleCallback] access token")
	}

	// A concurrent callback for the same user may have finished while we were waiting
	// on the provider; its credential wins.
	linked, err = s.isLinked(ctx, entry.UserID)
	if err != nil {
		return "", errors.Wrap(err, "[Service.HandleCallback] check existing credential")
	}
	if linked {
		s.logger.Info().Str("user_id", entry.UserID).Msg("catalog account linked concurrently, discarding duplicate tokens")
		return OutcomeAlreadyConnected, nil
	}

	if err := s.credentials.Upsert(ctx, credentials.AccessCredential{
		UserID:            entry.UserID,
		AccessToken:       accessToken,
		AccessTokenSecret: accessSecret,
		LinkedAt:          s.nowTime(),
	}); err != nil {
		s.release(cb.RequestToken)
		return "", errors.Wrap(err, "[Service.HandleCallback] store credential")
	}

	s.logger.Info().Str("user_id", entry.UserID).Msg("catalog account linked")
	return OutcomeConnected, nil
}

// Disconnect forgets the credential of userID so the next handshake stores fresh
// tokens. Disconnecting an unlinked user is not an error.
func (s *Service) Disconnect(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("[Service.Disconnect] user id is required")
	}
	if err := s.credentials.Delete(ctx, userID); err != nil {
		return errors.Wrap(err, "[Service.Disconnect] delete credential")
	}
	s.logger.Info().Str("user_id", userID).Msg("catalog account disconnected")
	return nil
}

// Status reports the link state of userID. A failing identity lookup still reports
// the user as connected, without an account name.
func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	credential, err := s.credentials.Get(ctx, userID)
	if apperrors.Is(err, credentials.ErrNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, errors.Wrap(err, "[Service.Status] get credential")
	}

	linkedAt := credential.LinkedAt
	status := Status{Connected: true, LinkedAt: &linkedAt}
	if s.identity == nil {
		return status, nil
	}
	identity, err := s.identity(ctx, *credential)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("catalog identity lookup failed")
		return status, nil
	}
	status.AccountName = identity.Username
	return status, nil
}

// release hands a taken token back after a failed callback so the user can retry
// within its original lifetime.
func (s *Service) release(token string) {
	if !s.pending.Restore(token) {
		s.logger.Debug().Msg("pending authorization could not be restored")
	}
}

func (s *Service) isLinked(ctx context.Context, userID string) (bool, error) {
	_, err := s.credentials.Get(ctx, userID)
	if err == nil {
		return true, nil
	}
	if apperrors.Is(err, credentials.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// exchange POSTs a signed token request and parses the form-encoded token pair from
// the response. Every failure is reported as ErrUpstreamAuth.
func (s *Service) exchange(ctx context.Context, endpoint, token, tokenSecret string, extra map[string]string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", "", apperrors.Mark(err, apperrors.ErrUpstreamAuth)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := s.signer.SignRequest(req, token, tokenSecret, extra); err != nil {
		return "", "", apperrors.Mark(err, apperrors.ErrUpstreamAuth)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", apperrors.Mark(err, apperrors.ErrUpstreamAuth)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponse))
	if err != nil {
		return "", "", apperrors.Mark(err, apperrors.ErrUpstreamAuth)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", apperrors.Wrapf(apperrors.ErrUpstreamAuth, "token endpoint returned %d", resp.StatusCode)
	}

	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return "", "", apperrors.Mark(err, apperrors.ErrUpstreamAuth)
	}
	tokenOut, secretOut := values.Get(oauth1.ParamToken), values.Get(oauth1.ParamTokenSecret)
	if tokenOut == "" || secretOut == "" {
		return "", "", apperrors.Wrapf(apperrors.ErrUpstreamAuth, "token response missing oauth_token or oauth_token_secret")
	}
	return tokenOut, secretOut, nil
}
