package catalog

import (
	"context"
	"fmt"
	"net/http"
)

const (
	MinRating = 1
	MaxRating = 5
)

func ratingPath(username string, item ItemID) []string {
	return []string{"releases", item.String(), "rating", username}
}

// Rating returns the user's rating of item; false when the user has not rated it.
func (c *Client) Rating(ctx context.Context, username string, item ItemID) (int, bool, error) {
	var payload struct {
		Rating int `json:"rating"`
	}
	status, err := c.decode(ctx, call{
		method: http.MethodGet,
		path:   ratingPath(username, item),
		accept: []int{http.StatusNotFound},
	}, &payload)
	if err != nil {
		return 0, false, err
	}
	if status == http.StatusNotFound || payload.Rating == 0 {
		return 0, false, nil
	}
	return payload.Rating, true, nil
}

func (c *Client) SetRating(ctx context.Context, username string, item ItemID, rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("rating %d out of range %d..%d", rating, MinRating, MaxRating)
	}
	_, _, err := c.do(ctx, call{
		method: http.MethodPut,
		path:   ratingPath(username, item),
		body:   map[string]int{"rating": rating},
	})
	return err
}

// DeleteRating clears the user's rating; a missing rating is not an error.
func (c *Client) DeleteRating(ctx context.Context, username string, item ItemID) error {
	_, _, err := c.do(ctx, call{
		method: http.MethodDelete,
		path:   ratingPath(username, item),
		accept: []int{http.StatusNotFound},
	})
	return err
}
