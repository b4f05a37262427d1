package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func wantPath(username string, item ItemID) []string {
	return []string{"users", username, "wants", item.String()}
}

// Want looks up item on the user's wantlist. A 404 is a normal negative result.
func (c *Client) Want(ctx context.Context, username string, item ItemID) (Want, bool, error) {
	var want Want
	status, err := c.decode(ctx, call{
		method: http.MethodGet,
		path:   wantPath(username, item),
		accept: []int{http.StatusNotFound},
	}, &want)
	if err != nil {
		return Want{}, false, err
	}
	if status == http.StatusNotFound {
		return Want{}, false, nil
	}
	if want.ItemID == 0 {
		want.ItemID = item
	}
	return want, true, nil
}

// AddWant adds item to the wantlist, or refreshes its notes and rating when it is
// already there. The provider treats the call as a PUT; a 409 is also success.
func (c *Client) AddWant(ctx context.Context, username string, item ItemID, opts WantOptions) error {
	query := url.Values{}
	if opts.Notes != nil {
		query.Set("notes", *opts.Notes)
	}
	if opts.Rating > 0 {
		query.Set("rating", strconv.Itoa(opts.Rating))
	}
	_, _, err := c.do(ctx, call{
		method: http.MethodPut,
		path:   wantPath(username, item),
		query:  query,
		accept: []int{http.StatusConflict},
	})
	return err
}

// RemoveWant removes item from the wantlist; removing an absent item is a no-op.
func (c *Client) RemoveWant(ctx context.Context, username string, item ItemID) error {
	_, _, err := c.do(ctx, call{
		method: http.MethodDelete,
		path:   wantPath(username, item),
		accept: []int{http.StatusNotFound},
	})
	return err
}
