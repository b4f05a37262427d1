package repofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-catalog-link/catalog"
	"github.com/jrsteele09/go-catalog-link/collection"
	"github.com/jrsteele09/go-catalog-link/internal/utils"
)

var _ collection.LocalStore = (*FakeLocalStore)(nil)

type key struct {
	userID string
	item   catalog.ItemID
}

// Upsert is one recorded UpsertEntry call.
type Upsert struct {
	UserID string
	ItemID catalog.ItemID
	Change collection.Change
}

type FakeLocalStore struct {
	entries map[key]collection.Entry
	upserts []Upsert
	deletes int
	reads   int
	err     error
	lock    sync.RWMutex
}

func NewFakeLocalStore() *FakeLocalStore {
	return &FakeLocalStore{
		entries: make(map[key]collection.Entry),
	}
}

// FailWith makes every later call return err.
func (ls *FakeLocalStore) FailWith(err error) {
	ls.lock.Lock()
	defer ls.lock.Unlock()
	ls.err = err
}

func (ls *FakeLocalStore) UpsertEntry(_ context.Context, userID string, item catalog.ItemID, change collection.Change) (collection.Entry, error) {
	ls.lock.Lock()
	defer ls.lock.Unlock()

	ls.upserts = append(ls.upserts, Upsert{UserID: userID, ItemID: item, Change: change})
	if ls.err != nil {
		return collection.Entry{}, ls.err
	}

	k := key{userID: userID, item: item}
	entry, ok := ls.entries[k]
	if !ok {
		entry = collection.Entry{UserID: userID, ItemID: item, Membership: collection.MembershipNone}
	}
	if change.Target != nil {
		entry.Membership = *change.Target
	}
	if change.Notes != nil {
		entry.Notes = utils.Clone(change.Notes)
	}
	if change.PriceThreshold != nil {
		entry.PriceThreshold = utils.Clone(change.PriceThreshold)
	}
	if change.Rating.Set {
		entry.Rating = nil
		if change.Rating.Valid && change.Rating.Value > 0 {
			entry.Rating = utils.Ptr(change.Rating.Value)
		}
	}
	ls.entries[k] = entry
	return entry, nil
}

func (ls *FakeLocalStore) GetEntry(_ context.Context, userID string, item catalog.ItemID) (*collection.Entry, error) {
	ls.lock.Lock()
	defer ls.lock.Unlock()

	ls.reads++
	if ls.err != nil {
		return nil, ls.err
	}
	entry, ok := ls.entries[key{userID: userID, item: item}]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (ls *FakeLocalStore) DeleteEntry(_ context.Context, userID string, item catalog.ItemID) error {
	ls.lock.Lock()
	defer ls.lock.Unlock()

	ls.deletes++
	if ls.err != nil {
		return ls.err
	}
	delete(ls.entries, key{userID: userID, item: item})
	return nil
}

// Upserts returns the recorded UpsertEntry calls.
func (ls *FakeLocalStore) Upserts() []Upsert {
	ls.lock.RLock()
	defer ls.lock.RUnlock()
	return append([]Upsert(nil), ls.upserts...)
}

// Touched reports whether any method has been called.
func (ls *FakeLocalStore) Touched() bool {
	ls.lock.RLock()
	defer ls.lock.RUnlock()
	return len(ls.upserts) > 0 || ls.deletes > 0 || ls.reads > 0
}

func (ls *FakeLocalStore) Len() int {
	ls.lock.RLock()
	defer ls.lock.RUnlock()
	return len(ls.entries)
}
