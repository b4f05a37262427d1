// Package oauth1 implements the client side of OAuth 1.0a request signing
// (RFC 5849): parameter normalization, signature base strings, HMAC-SHA1 signatures
// and the Authorization header.
//
// The free functions are pure. Signer adds the per-request nonce and timestamp.
package oauth1
