package catalogfake

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/jrsteele09/go-catalog-link/catalog"
	"github.com/jrsteele09/go-catalog-link/collection"
)

var _ collection.Catalog = (*FakeCatalog)(nil)

// Call is one recorded invocation.
type Call struct {
	Method     string
	Username   string
	ItemID     catalog.ItemID
	FolderID   int
	InstanceID int64
	Rating     int
	Notes      *string
}

// FakeCatalog is an in-memory catalog for a set of users that records every call.
// Errors keyed by method name are returned instead of doing the work.
type FakeCatalog struct {
	lock       sync.Mutex
	wants      map[string]map[catalog.ItemID]catalog.Want
	instances  map[string]map[catalog.ItemID][]catalog.Instance
	ratings    map[string]map[catalog.ItemID]int
	errors     map[string]error
	calls      []Call
	nextInstID int64
}

func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		wants:      make(map[string]map[catalog.ItemID]catalog.Want),
		instances:  make(map[string]map[catalog.ItemID][]catalog.Instance),
		ratings:    make(map[string]map[catalog.ItemID]int),
		errors:     make(map[string]error),
		nextInstID: 1000,
	}
}

// SeedWant puts item on the user's wantlist without recording a call.
func (fc *FakeCatalog) SeedWant(username string, want catalog.Want) {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	if fc.wants[username] == nil {
		fc.wants[username] = make(map[catalog.ItemID]catalog.Want)
	}
	fc.wants[username][want.ItemID] = want
}

// SeedInstance adds a collection instance without recording a call.
func (fc *FakeCatalog) SeedInstance(username string, instance catalog.Instance) {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	if fc.instances[username] == nil {
		fc.instances[username] = make(map[catalog.ItemID][]catalog.Instance)
	}
	fc.instances[username][instance.ItemID] = append(fc.instances[username][instance.ItemID], instance)
}

func (fc *FakeCatalog) SeedRating(username string, item catalog.ItemID, rating int) {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	if fc.ratings[username] == nil {
		fc.ratings[username] = make(map[catalog.ItemID]int)
	}
	fc.ratings[username][item] = rating
}

// FailOn makes every later call of method return err.
func (fc *FakeCatalog) FailOn(method string, err error) {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.errors[method] = err
}

// Calls returns the recorded calls in order.
func (fc *FakeCatalog) Calls() []Call {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	return append([]Call(nil), fc.calls...)
}

// Count returns how many times method was called.
func (fc *FakeCatalog) Count(method string) int {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	n := 0
	for _, c := range fc.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Methods returns the sorted distinct names of the recorded calls.
func (fc *FakeCatalog) Methods() []string {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	seen := map[string]struct{}{}
	for _, c := range fc.calls {
		seen[c.Method] = struct{}{}
	}
	methods := make([]string, 0, len(seen))
	for m := range seen {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

func (fc *FakeCatalog) InWantlist(username string, item catalog.ItemID) bool {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	_, ok := fc.wants[username][item]
	return ok
}

func (fc *FakeCatalog) InstanceCount(username string, item catalog.ItemID) int {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	return len(fc.instances[username][item])
}

// record must be called with the lock held.
func (fc *FakeCatalog) record(c Call) error {
	fc.calls = append(fc.calls, c)
	return fc.errors[c.Method]
}

// NotFound is the error the provider client reports for a 404.
func NotFound() error {
	return &catalog.UpstreamError{Status: http.StatusNotFound, Message: "The requested resource was not found."}
}

func (fc *FakeCatalog) Want(_ context.Context, username string, item catalog.ItemID) (catalog.Want, bool, error) {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	if err := fc.record(Call{Method: "Want", Username: username, ItemID: item}); err != nil {
		if catalog.IsNotFound(err) {
			return catalog.Want{}, false, nil
		}
		return catalog.Want{}, false, err
	}
	want, ok := fc.wants[username][item]
	return want, ok, nil
}

func (fc *FakeCatalog) AddWant(_ context.Context, username string, item catalog.ItemID, opts catalog.WantOptions) error {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	if err := fc.record(Call{Method: "AddWant", Username: username, ItemID: item, Rating: opts.Rating, Notes: opts.Notes}); err != nil {
		return err
	}
	if fc.wants[username] == nil {
		fc.wants[username] = make(map[catalog.ItemID]catalog.Want)
	}
	want := fc.wants[username][item]
	want.ItemID = item
	if opts.Notes != nil {
		want.Notes = *opts.Notes
	}
	if opts.Rating > 0 {
		want.Rating = opts.Rating
	}
	fc.wants[username][item] = want
	return nil
}

func (fc *FakeCatalog) RemoveWant(_ context.Context, username string, item catalog.ItemID) error {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	if err := fc.record(Call{Method: "RemoveWant", Username: username, ItemID: item}); err != nil {
		return err
	}
	delete(fc.wants[username], item)
	return nil
}

func (fc *FakeCatalog) Instances(_ context.Context, username string, item catalog.ItemID) ([]catalog.Instance, error) {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	if err := fc.record(Call{Method: "Instances", Username: username, ItemID: item}); err != nil {
		if catalog.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return append([]catalog.Instance(nil), fc.instances[username][item]...), nil
}

func (fc *FakeCatalog) AddToFolder(_ context.Context, username string, folderID int, item catalog.ItemID) (catalog.Instance, error) {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	if err := fc.record(Call{Method: "AddToFolder", Username: username, ItemID: item, FolderID: folderID}); err != nil {
		return catalog.Instance{}, err
	}
	fc.nextInstID++
	instance := catalog.Instance{InstanceID: fc.nextInstID, FolderID: folderID, ItemID: item}
	if fc.instances[username] == nil {
		fc.instances[username] = make(map[catalog.ItemID][]catalog.Instance)
	}
	fc.instances[username][item] = append(fc.instances[username][item], instance)
	return instance, nil
}

func (fc *FakeCatalog) RemoveInstance(_ context.Context, username string, folderID int, item catalog.ItemID, instanceID int64) error {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	if err := fc.record(Call{Method: "RemoveInstance", Username: username, ItemID: item, FolderID: folderID, InstanceID: instanceID}); err != nil {
		return err
	}
	kept := fc.instances[username][item][:0]
	for _, instance := range fc.instances[username][item] {
		if instance.InstanceID != instanceID {
			kept = append(kept, instance)
		}
	}
	if fc.instances[username] != nil {
		fc.instances[username][item] = kept
	}
	return nil
}

func (fc *FakeCatalog) Rating(_ context.Context, username string, item catalog.ItemID) (int, bool, error) {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	if err := fc.record(Call{Method: "Rating", Username: username, ItemID: item}); err != nil {
		return 0, false, err
	}
	rating, ok := fc.ratings[username][item]
	return rating, ok, nil
}

func (fc *FakeCatalog) SetRating(_ context.Context, username string, item catalog.ItemID, rating int) error {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	if err := fc.record(Call{Method: "SetRating", Username: username, ItemID: item, Rating: rating}); err != nil {
		return err
	}
	if rating < catalog.MinRating || rating > catalog.MaxRating {
		return fmt.Errorf("rating %d out of range", rating)
	}
	if fc.ratings[username] == nil {
		fc.ratings[username] = make(map[catalog.ItemID]int)
	}
	fc.ratings[username][item] = rating
	return nil
}

// DeleteRating treats a missing rating as success, like the provider client does.
func (fc *FakeCatalog) DeleteRating(_ context.Context, username string, item catalog.ItemID) error {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	if err := fc.record(Call{Method: "DeleteRating", Username: username, ItemID: item}); err != nil {
		if catalog.IsNotFound(err) {
			return nil
		}
		return err
	}
	delete(fc.ratings[username], item)
	return nil
}
