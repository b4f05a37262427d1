package catalog

import "strconv"

// ItemID identifies a catalog item (a release) on the provider.
type ItemID int64

func (id ItemID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseItemID parses a positive decimal item id.
func ParseItemID(s string) (ItemID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, strconv.ErrRange
	}
	return ItemID(v), nil
}

// Identity is the provider account behind an access token.
type Identity struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	ResourceURL  string `json:"resource_url"`
	ConsumerName string `json:"consumer_name"`
}

// Want is an item on a user's wantlist.
type Want struct {
	ItemID ItemID `json:"id"`
	Rating int    `json:"rating"`
	Notes  string `json:"notes"`
}

// WantOptions are the optional fields sent when adding (or refreshing) a want.
// A zero Rating is not sent.
type WantOptions struct {
	Notes  *string
	Rating int
}

// Instance is one copy of an item in a user's collection. An item can be in the
// collection several times, in the same or different folders.
type Instance struct {
	InstanceID int64  `json:"instance_id"`
	FolderID   int    `json:"folder_id"`
	ItemID     ItemID `json:"id"`
	Rating     int    `json:"rating"`
}
