// Package catalog is a typed client for the catalog provider's REST API (Discogs
// shapes): identity, wantlist, collection folders and ratings. All calls are keyed by
// the provider account name.
//
// Requests are authorized either with a user's OAuth 1.0a access token (signed per
// request) or with the application's shared token. Nothing is retried; every
// non-accepted response becomes an *UpstreamError.
package catalog
