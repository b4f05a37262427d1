package oauth1

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// AuthorizationHeader renders `OAuth k1="v1", k2="v2"` with keys sorted and both
// sides percent-encoded. Only the first value of each key is used.
func AuthorizationHeader(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, PercentEncode(k), PercentEncode(params.Get(k))))
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// Nonce returns 16 random bytes, hex-encoded.
func Nonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Timestamp formats t as Unix seconds.
func Timestamp(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
