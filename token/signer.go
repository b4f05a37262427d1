package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var ErrInvalidToken = errors.New("invalid bearer token")

// Claims identify the caller. Subject is the user id; Username is the account name
// the catalog knows the user by.
type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// HMACSigner signs and verifies HS256 bearer tokens issued by the identity provider
// in front of this service.
type HMACSigner struct {
	secret  []byte
	issuer  string
	nowTime func() time.Time
}

// SignerOption defines a function type to modify the HMACSigner instance.
type SignerOption func(*HMACSigner)

// WithIssuer requires (and, when signing, sets) the "iss" claim.
func WithIssuer(issuer string) SignerOption {
	return func(h *HMACSigner) {
		h.issuer = issuer
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) SignerOption {
	return func(h *HMACSigner) {
		h.nowTime = nowFunc
	}
}

// NewHMACSigner creates a new HMAC signer with the given secret
func NewHMACSigner(secret string, options ...SignerOption) (*HMACSigner, error) {
	if secret == "" {
		return nil, errors.New("[token.NewHMACSigner] secret is required")
	}
	h := &HMACSigner{
		secret:  []byte(secret),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(h)
	}
	return h, nil
}

func (h *HMACSigner) Sign(claims Claims) (string, error) {
	if h.issuer != "" && claims.Issuer == "" {
		claims.Issuer = h.issuer
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signed, nil
}

// Verify parses raw and returns its claims when the signature, expiry and issuer
// check out and a subject is present.
func (h *HMACSigner) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.Wrap(ErrInvalidToken, "empty token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(h.nowTime),
	}
	if h.issuer != "" {
		opts = append(opts, jwt.WithIssuer(h.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, h.verificationKey, opts...)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, errors.Wrap(ErrInvalidToken, "missing subject")
	}
	return claims, nil
}

func (h *HMACSigner) verificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}
