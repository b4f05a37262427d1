package oauth1

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"
)

// OAuth protocol parameter names.
const (
	ParamConsumerKey     = "oauth_consumer_key"
	ParamNonce           = "oauth_nonce"
	ParamTimestamp       = "oauth_timestamp"
	ParamSignatureMethod = "oauth_signature_method"
	ParamVersion         = "oauth_version"
	ParamSignature       = "oauth_signature"
	ParamToken           = "oauth_token"
	ParamTokenSecret     = "oauth_token_secret"
	ParamCallback        = "oauth_callback"
	ParamVerifier        = "oauth_verifier"
)

// Signer signs requests on behalf of a single consumer (application).
type Signer struct {
	consumerKey    string
	consumerSecret string
	nonce          func() (string, error)
	nowTime        func() time.Time
}

// SignerOption defines a function type to modify the Signer instance.
type SignerOption func(*Signer)

// WithNonceFunc replaces the nonce source (primarily for testing)
func WithNonceFunc(nonce func() (string, error)) SignerOption {
	return func(s *Signer) {
		s.nonce = nonce
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) SignerOption {
	return func(s *Signer) {
		s.nowTime = nowFunc
	}
}

func NewSigner(consumerKey, consumerSecret string, options ...SignerOption) (*Signer, error) {
	if consumerKey == "" {
		return nil, errors.New("[oauth1.NewSigner] consumer key is required")
	}
	if consumerSecret == "" {
		return nil, errors.New("[oauth1.NewSigner] consumer secret is required")
	}

	s := &Signer{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		nonce:          Nonce,
		nowTime:        time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// OAuthParams builds the protocol parameters for one request. token is omitted when
// empty; extra carries flow specific parameters such as oauth_callback or
// oauth_verifier.
func (s *Signer) OAuthParams(token string, extra map[string]string) (url.Values, error) {
	nonce, err := s.nonce()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set(ParamConsumerKey, s.consumerKey)
	params.Set(ParamNonce, nonce)
	params.Set(ParamTimestamp, Timestamp(s.nowTime()))
	params.Set(ParamSignatureMethod, SignatureMethodHMACSHA1)
	params.Set(ParamVersion, Version)
	if token != "" {
		params.Set(ParamToken, token)
	}
	for k, v := range extra {
		params.Set(k, v)
	}
	return params, nil
}

// Authorization returns the Authorization header value for a request. requestParams
// are the query and form parameters of the request; they take part in the signature
// but are not copied into the header.
func (s *Signer) Authorization(method, rawURL, token, tokenSecret string, extra map[string]string, requestParams url.Values) (string, error) {
	oauthParams, err := s.OAuthParams(token, extra)
	if err != nil {
		return "", err
	}

	all := url.Values{}
	for k, v := range requestParams {
		all[k] = append(all[k], v...)
	}
	for k, v := range oauthParams {
		all[k] = append(all[k], v...)
	}

	signature, err := Sign(method, rawURL, all, s.consumerSecret, tokenSecret)
	if err != nil {
		return "", err
	}
	oauthParams.Set(ParamSignature, signature)
	return AuthorizationHeader(oauthParams), nil
}

// SignRequest signs req in place. Query parameters, and the body of a form-encoded
// request, are included in the signature.
func (s *Signer) SignRequest(req *http.Request, token, tokenSecret string, extra map[string]string) error {
	params := req.URL.Query()

	form, err := formParams(req)
	if err != nil {
		return err
	}
	for k, v := range form {
		params[k] = append(params[k], v...)
	}

	header, err := s.Authorization(req.Method, req.URL.String(), token, tokenSecret, extra, params)
	if err != nil {
		return fmt.Errorf("sign %s %s: %w", req.Method, req.URL.Path, err)
	}
	req.Header.Set("Authorization", header)
	return nil
}

func formParams(req *http.Request) (url.Values, error) {
	if req.GetBody == nil {
		return nil, nil
	}
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if mediaType != "application/x-www-form-urlencoded" {
		return nil, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("read form body: %w", err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read form body: %w", err)
	}
	return url.ParseQuery(string(raw))
}
