package oauth1

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const (
	SignatureMethodHMACSHA1 = "HMAC-SHA1"
	Version                 = "1.0"
)

const upperHex = "0123456789ABCDEF"

// PercentEncode encodes s per RFC 3986 section 2.1 as required by RFC 5849 section 3.6.
// Only the unreserved set (ALPHA, DIGIT, "-", ".", "_", "~") is left as is.
func PercentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

type pair struct {
	key   string
	value string
}

// NormalizeParameters encodes every key/value pair, sorts by encoded key then encoded
// value and joins them as k=v with "&".
func NormalizeParameters(params url.Values) string {
	pairs := make([]pair, 0, len(params))
	for k, values := range params {
		ek := PercentEncode(k)
		if len(values) == 0 {
			pairs = append(pairs, pair{key: ek})
			continue
		}
		for _, v := range values {
			pairs = append(pairs, pair{key: ek, value: PercentEncode(v)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.key + "=" + p.value
	}
	return strings.Join(parts, "&")
}

// BaseStringURI returns the base string URI of RFC 5849 section 3.4.1.2: lower-case
// scheme and host, default ports removed, no query or fragment.
func BaseStringURI(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q must be absolute", rawURL)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = host + ":" + port
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path, nil
}

// BaseString builds the signature base string:
// UPPER(method) & enc(base string URI) & enc(normalized parameters).
func BaseString(method, rawURL string, params url.Values) (string, error) {
	uri, err := BaseStringURI(rawURL)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(method) + "&" + PercentEncode(uri) + "&" + PercentEncode(NormalizeParameters(params)), nil
}

// SigningKey joins the encoded consumer secret and token secret with "&". The token
// secret is empty while requesting a temporary credential.
func SigningKey(consumerSecret, tokenSecret string) string {
	return PercentEncode(consumerSecret) + "&" + PercentEncode(tokenSecret)
}

// Sign returns Base64(HMAC-SHA1(signingKey, baseString)). params must not contain
// oauth_signature.
func Sign(method, rawURL string, params url.Values, consumerSecret, tokenSecret string) (string, error) {
	base, err := BaseString(method, rawURL, params)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha1.New, []byte(SigningKey(consumerSecret, tokenSecret)))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
