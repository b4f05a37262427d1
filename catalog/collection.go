package catalog

import (
	"context"
	"net/http"
	"strconv"
)

// Instances lists every copy of item in the user's collection, across folders.
// An item that is not in the collection yields an empty slice, whether the provider
// answers 404 or an empty list.
func (c *Client) Instances(ctx context.Context, username string, item ItemID) ([]Instance, error) {
	var payload struct {
		Releases []Instance `json:"releases"`
	}
	status, err := c.decode(ctx, call{
		method: http.MethodGet,
		path:   []string{"users", username, "collection", "releases", item.String()},
		accept: []int{http.StatusNotFound},
	}, &payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	for i := range payload.Releases {
		if payload.Releases[i].ItemID == 0 {
			payload.Releases[i].ItemID = item
		}
	}
	return payload.Releases, nil
}

// AddToFolder adds a new instance of item to a collection folder. A 409 (already
// present) is success and returns a zero Instance.
func (c *Client) AddToFolder(ctx context.Context, username string, folderID int, item ItemID) (Instance, error) {
	var instance Instance
	status, err := c.decode(ctx, call{
		method: http.MethodPost,
		path:   []string{"users", username, "collection", "folders", strconv.Itoa(folderID), "releases", item.String()},
		accept: []int{http.StatusConflict},
	}, &instance)
	if err != nil {
		return Instance{}, err
	}
	if status == http.StatusConflict {
		return Instance{}, nil
	}
	instance.FolderID = folderID
	instance.ItemID = item
	return instance, nil
}

// RemoveInstance removes one instance from its folder; an instance that is already
// gone is a no-op.
func (c *Client) RemoveInstance(ctx context.Context, username string, folderID int, item ItemID, instanceID int64) error {
	_, _, err := c.do(ctx, call{
		method: http.MethodDelete,
		path: []string{
			"users", username, "collection", "folders", strconv.Itoa(folderID),
			"releases", item.String(), "instances", strconv.FormatInt(instanceID, 10),
		},
		accept: []int{http.StatusNotFound},
	})
	return err
}
