package collection

import (
	"context"

	"github.com/jrsteele09/go-catalog-link/catalog"
	"github.com/jrsteele09/go-catalog-link/credentials"
	apperrors "github.com/jrsteele09/go-catalog-link/internal/errors"
	"github.com/jrsteele09/go-catalog-link/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const DefaultFolderID = 1

// Repos holds the storage dependencies of the Engine.
type Repos struct {
	Credentials credentials.Repo // decides between remote and local
	Local       LocalStore       // entries of users without a credential
}

// Engine reconciles a desired change for (user, item) against the remote catalog of a
// linked user or the local store of an unlinked one. A user's entries live in exactly
// one of the two.
type Engine struct {
	repos           Repos
	catalogs        CatalogFactory
	defaultFolderID int
	logger          zerolog.Logger
}

// EngineOption defines a function type to modify the Engine instance.
type EngineOption func(*Engine)

func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithDefaultFolderID sets the folder new collection instances are added to.
func WithDefaultFolderID(folderID int) EngineOption {
	return func(e *Engine) {
		if folderID > 0 {
			e.defaultFolderID = folderID
		}
	}
}

func NewEngine(repos Repos, catalogs CatalogFactory, options ...EngineOption) (*Engine, error) {
	if repos.Credentials == nil {
		return nil, errors.New("[NewEngine] Credentials repo is required")
	}
	if repos.Local == nil {
		return nil, errors.New("[NewEngine] Local store is required")
	}
	if catalogs == nil {
		return nil, errors.New("[NewEngine] catalog factory is required")
	}

	e := &Engine{
		repos:           repos,
		catalogs:        catalogs,
		defaultFolderID: DefaultFolderID,
		logger:          log.Logger,
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// Upsert drives item towards the state described by change and returns the entry it
// intended to produce.
func (e *Engine) Upsert(ctx context.Context, user User, item catalog.ItemID, change Change) (Entry, error) {
	if err := validate(user, item, change); err != nil {
		return Entry{}, err
	}

	remote, err := e.remoteFor(ctx, user)
	if err != nil {
		return Entry{}, errors.Wrap(err, "[Engine.Upsert]")
	}
	if remote == nil {
		entry, err := e.repos.Local.UpsertEntry(ctx, user.ID, item, change)
		if err != nil {
			return Entry{}, errors.Wrap(apperrors.Mark(err, apperrors.ErrLocalStore), "[Engine.Upsert] local upsert")
		}
		return entry, nil
	}

	inWantlist, instances, err := e.currentMembership(ctx, remote, user.Username, item)
	if err != nil {
		return Entry{}, errors.Wrap(err, "[Engine.Upsert] current membership")
	}
	inCollection := len(instances) > 0

	rating := change.Rating
	wantOpts := catalog.WantOptions{Notes: change.Notes}
	if rating.Set && rating.Valid {
		wantOpts.Rating = rating.Value
	}

	membership := MembershipNone
	switch {
	case change.Target == nil:
		switch {
		case inWantlist:
			membership = MembershipWantlist
			if refreshesWant(change) {
				if err := remote.AddWant(ctx, user.Username, item, wantOpts); err != nil {
					return Entry{}, errors.Wrap(err, "[Engine.Upsert] refresh want")
				}
			}
		case inCollection:
			membership = MembershipCollection
			if change.Notes != nil || change.PriceThreshold != nil {
				e.logger.Debug().Str("user_id", user.ID).Stringer("item_id", item).
					Msg("collection metadata is not supported by the catalog, skipping")
			}
		}

	case *change.Target == MembershipWantlist:
		membership = MembershipWantlist
		if !inWantlist || refreshesWant(change) {
			if err := remote.AddWant(ctx, user.Username, item, wantOpts); err != nil {
				return Entry{}, errors.Wrap(err, "[Engine.Upsert] add want")
			}
		}
		if err := e.removeInstances(ctx, remote, user.Username, item, instances); err != nil {
			return Entry{}, errors.Wrap(err, "[Engine.Upsert] leave collection")
		}

	case *change.Target == MembershipCollection:
		membership = MembershipCollection
		if !inCollection {
			if _, err := remote.AddToFolder(ctx, user.Username, e.defaultFolderID, item); err != nil {
				return Entry{}, errors.Wrap(err, "[Engine.Upsert] add to collection")
			}
		}
		if inWantlist {
			if err := remote.RemoveWant(ctx, user.Username, item); err != nil {
				return Entry{}, errors.Wrap(err, "[Engine.Upsert] leave wantlist")
			}
		}

	case *change.Target == MembershipNone:
		if inWantlist {
			if err := remote.RemoveWant(ctx, user.Username, item); err != nil {
				return Entry{}, errors.Wrap(err, "[Engine.Upsert] leave wantlist")
			}
		}
		if err := e.removeInstances(ctx, remote, user.Username, item, instances); err != nil {
			return Entry{}, errors.Wrap(err, "[Engine.Upsert] leave collection")
		}
	}

	e.syncRating(ctx, remote, user, item, rating)

	return Entry{
		UserID:         user.ID,
		ItemID:         item,
		Membership:     membership,
		Notes:          change.Notes,
		PriceThreshold: change.PriceThreshold,
		Rating:         ratingValue(rating),
	}, nil
}

// Remove takes item off both lists.
func (e *Engine) Remove(ctx context.Context, user User, item catalog.ItemID) error {
	if user.ID == "" || item <= 0 {
		return errors.Wrap(apperrors.ErrInvalidChange, "[Engine.Remove] user and item are required")
	}

	remote, err := e.remoteFor(ctx, user)
	if err != nil {
		return errors.Wrap(err, "[Engine.Remove]")
	}
	if remote == nil {
		if err := e.repos.Local.DeleteEntry(ctx, user.ID, item); err != nil {
			return errors.Wrap(apperrors.Mark(err, apperrors.ErrLocalStore), "[Engine.Remove] local delete")
		}
		return nil
	}

	if err := remote.RemoveWant(ctx, user.Username, item); err != nil {
		return errors.Wrap(err, "[Engine.Remove] leave wantlist")
	}
	instances, err := remote.Instances(ctx, user.Username, item)
	if err != nil {
		return errors.Wrap(err, "[Engine.Remove] list instances")
	}
	if err := e.removeInstances(ctx, remote, user.Username, item, instances); err != nil {
		return errors.Wrap(err, "[Engine.Remove] leave collection")
	}
	return nil
}

// Overview returns the current entry for item, or nil when it is on neither list.
func (e *Engine) Overview(ctx context.Context, user User, item catalog.ItemID) (*Entry, error) {
	if user.ID == "" || item <= 0 {
		return nil, errors.Wrap(apperrors.ErrInvalidChange, "[Engine.Overview] user and item are required")
	}

	remote, err := e.remoteFor(ctx, user)
	if err != nil {
		return nil, errors.Wrap(err, "[Engine.Overview]")
	}
	if remote == nil {
		entry, err := e.repos.Local.GetEntry(ctx, user.ID, item)
		if err != nil {
			return nil, errors.Wrap(apperrors.Mark(err, apperrors.ErrLocalStore), "[Engine.Overview] local read")
		}
		return entry, nil
	}

	var (
		want      catalog.Want
		inWants   bool
		instances []catalog.Instance
		rating    int
		rated     bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		want, inWants, err = remote.Want(gctx, user.Username, item)
		return err
	})
	g.Go(func() (err error) {
		instances, err = remote.Instances(gctx, user.Username, item)
		return err
	})
	g.Go(func() (err error) {
		rating, rated, err = remote.Rating(gctx, user.Username, item)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "[Engine.Overview]")
	}

	entry := &Entry{UserID: user.ID, ItemID: item}
	switch {
	case inWants:
		entry.Membership = MembershipWantlist
		if want.Notes != "" {
			entry.Notes = utils.Ptr(want.Notes)
		}
	case len(instances) > 0:
		entry.Membership = MembershipCollection
	default:
		return nil, nil
	}
	if rated && rating > 0 {
		entry.Rating = utils.Ptr(rating)
	}
	return entry, nil
}

// remoteFor returns the catalog acting for user, or nil when user has no credential.
func (e *Engine) remoteFor(ctx context.Context, user User) (Catalog, error) {
	credential, err := e.repos.Credentials.Get(ctx, user.ID)
	if apperrors.Is(err, credentials.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get credential")
	}
	if user.Username == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidChange, "linked user has no username")
	}
	remote, err := e.catalogs(*credential)
	if err != nil {
		return nil, errors.Wrap(err, "build catalog client")
	}
	return remote, nil
}

// currentMembership checks both lists concurrently. Not found on either is a negative
// result.
func (e *Engine) currentMembership(ctx context.Context, remote Catalog, username string, item catalog.ItemID) (bool, []catalog.Instance, error) {
	var (
		inWantlist bool
		instances  []catalog.Instance
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		_, inWantlist, err = remote.Want(gctx, username, item)
		return err
	})
	g.Go(func() (err error) {
		instances, err = remote.Instances(gctx, username, item)
		return err
	})
	if err := g.Wait(); err != nil {
		return false, nil, err
	}
	return inWantlist, instances, nil
}

// removeInstances deletes every instance one by one. Instances removed before a
// failure stay removed.
func (e *Engine) removeInstances(ctx context.Context, remote Catalog, username string, item catalog.ItemID, instances []catalog.Instance) error {
	for _, instance := range instances {
		if err := remote.RemoveInstance(ctx, username, instance.FolderID, item, instance.InstanceID); err != nil {
			return errors.Wrapf(err, "remove instance %d", instance.InstanceID)
		}
	}
	return nil
}

// syncRating applies the rating part of a change. Failures are logged and never fail
// the surrounding operation.
func (e *Engine) syncRating(ctx context.Context, remote Catalog, user User, item catalog.ItemID, rating utils.Nullable[int]) {
	if !rating.Set {
		return
	}

	var err error
	if rating.Valid && rating.Value > 0 {
		err = remote.SetRating(ctx, user.Username, item, rating.Value)
	} else {
		err = remote.DeleteRating(ctx, user.Username, item)
	}
	if err != nil {
		e.logger.Warn().Err(err).
			Str("warning", "rating_sync").
			Str("user_id", user.ID).
			Stringer("item_id", item).
			Msg("rating sync failed")
	}
}

func validate(user User, item catalog.ItemID, change Change) error {
	if user.ID == "" {
		return errors.Wrap(apperrors.ErrInvalidChange, "[Engine.Upsert] user id is required")
	}
	if item <= 0 {
		return errors.Wrapf(apperrors.ErrInvalidChange, "[Engine.Upsert] invalid item id %d", item)
	}
	if change.Rating.Set && change.Rating.Valid && (change.Rating.Value < 0 || change.Rating.Value > catalog.MaxRating) {
		return errors.Wrapf(apperrors.ErrInvalidChange, "[Engine.Upsert] rating %d out of range", change.Rating.Value)
	}
	if change.PriceThreshold != nil && *change.PriceThreshold < 0 {
		return errors.Wrap(apperrors.ErrInvalidChange, "[Engine.Upsert] negative price threshold")
	}
	if change.Target != nil {
		if _, err := ParseMembership(string(*change.Target)); err != nil {
			return errors.Wrap(apperrors.Mark(err, apperrors.ErrInvalidChange), "[Engine.Upsert]")
		}
	}
	return nil
}

// refreshesWant reports whether change carries fields a want stores itself.
func refreshesWant(change Change) bool {
	return change.Notes != nil || (change.Rating.Valid && change.Rating.Value > 0)
}

// ratingValue is the rating an entry reports after a change: 0 and null both clear it.
func ratingValue(rating utils.Nullable[int]) *int {
	if !rating.Set || !rating.Valid || rating.Value == 0 {
		return nil
	}
	return utils.Ptr(rating.Value)
}
