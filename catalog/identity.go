package catalog

import (
	"context"
	"net/http"
)

// Identity returns the provider account the client is authorized as. It requires an
// OAuth authorizer.
func (c *Client) Identity(ctx context.Context) (Identity, error) {
	var identity Identity
	_, err := c.decode(ctx, call{method: http.MethodGet, path: []string{"oauth", "identity"}}, &identity)
	return identity, err
}
