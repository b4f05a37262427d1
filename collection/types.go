package collection

import (
	"context"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-catalog-link/catalog"
	"github.com/jrsteele09/go-catalog-link/credentials"
	"github.com/jrsteele09/go-catalog-link/internal/utils"
)

// Membership is which of the two mutually exclusive lists an item is on.
type Membership string

const (
	MembershipNone       Membership = "none"
	MembershipWantlist   Membership = "wantlist"
	MembershipCollection Membership = "collection"
)

func ParseMembership(s string) (Membership, error) {
	switch m := Membership(strings.ToLower(strings.TrimSpace(s))); m {
	case MembershipNone, MembershipWantlist, MembershipCollection:
		return m, nil
	default:
		return "", fmt.Errorf("unknown membership %q", s)
	}
}

func (m *Membership) UnmarshalText(text []byte) error {
	parsed, err := ParseMembership(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// User is the caller as resolved by the identity collaborator. Remote calls are keyed
// by Username, local rows by ID.
type User struct {
	ID       string
	Username string
}

// Change is a desired membership and metadata change for one item. Nil fields are
// left as they are. Rating: unset leaves it alone, null or 0 clears it, 1..5 sets it.
type Change struct {
	Target         *Membership         `json:"membership,omitempty"`
	Notes          *string             `json:"notes,omitempty"`
	PriceThreshold *float64            `json:"price_threshold,omitempty"`
	Rating         utils.Nullable[int] `json:"rating"`
}

// Entry is the logical view of one item for one user.
type Entry struct {
	UserID         string         `json:"user_id"`
	ItemID         catalog.ItemID `json:"item_id"`
	Membership     Membership     `json:"membership"`
	Notes          *string        `json:"notes"`
	PriceThreshold *float64       `json:"price_threshold"`
	Rating         *int           `json:"rating"`
}

// LocalStore holds entries for users without a linked catalog account.
//
// UpsertEntry applies only the fields the change supplies, inserting the row when it
// does not exist, and returns the stored row. GetEntry returns nil when there is no row.
type LocalStore interface {
	UpsertEntry(ctx context.Context, userID string, item catalog.ItemID, change Change) (Entry, error)
	GetEntry(ctx context.Context, userID string, item catalog.ItemID) (*Entry, error)
	DeleteEntry(ctx context.Context, userID string, item catalog.ItemID) error
}

// Catalog is the subset of the provider API the engine drives. *catalog.Client
// implements it.
type Catalog interface {
	Want(ctx context.Context, username string, item catalog.ItemID) (catalog.Want, bool, error)
	AddWant(ctx context.Context, username string, item catalog.ItemID, opts catalog.WantOptions) error
	RemoveWant(ctx context.Context, username string, item catalog.ItemID) error

	Instances(ctx context.Context, username string, item catalog.ItemID) ([]catalog.Instance, error)
	AddToFolder(ctx context.Context, username string, folderID int, item catalog.ItemID) (catalog.Instance, error)
	RemoveInstance(ctx context.Context, username string, folderID int, item catalog.ItemID, instanceID int64) error

	Rating(ctx context.Context, username string, item catalog.ItemID) (int, bool, error)
	SetRating(ctx context.Context, username string, item catalog.ItemID, rating int) error
	DeleteRating(ctx context.Context, username string, item catalog.ItemID) error
}

var _ Catalog = (*catalog.Client)(nil)

// CatalogFactory builds a catalog client acting on behalf of a linked user.
type CatalogFactory func(credential credentials.AccessCredential) (Catalog, error)
