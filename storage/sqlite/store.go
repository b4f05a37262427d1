package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrsteele09/go-catalog-link/catalog"
	"github.com/jrsteele09/go-catalog-link/collection"
	"github.com/jrsteele09/go-catalog-link/credentials"
	"github.com/jrsteele09/go-catalog-link/internal/utils"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

var (
	_ collection.LocalStore = (*Store)(nil)
	_ credentials.Repo      = (*Store)(nil)
)

// Store keeps the collection entries of unlinked users and the access credentials
// of linked ones.
type Store struct {
	db      *sql.DB
	nowTime func() time.Time
}

// Option defines a function type to modify the Store instance.
type Option func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string, options ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{db: db, nowTime: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertEntry inserts or updates the (userID, item) row in one statement. Fields the
// change does not supply keep their stored value.
func (s *Store) UpsertEntry(ctx context.Context, userID string, item catalog.ItemID, change collection.Change) (collection.Entry, error) {
	if strings.TrimSpace(userID) == "" {
		return collection.Entry{}, fmt.Errorf("user id is required")
	}

	membership := utils.ValueOr(change.Target, collection.MembershipNone)
	var rating sql.NullInt64
	if change.Rating.Valid && change.Rating.Value > 0 {
		rating = sql.NullInt64{Int64: int64(change.Rating.Value), Valid: true}
	}

	row := s.db.QueryRowContext(ctx, `
INSERT INTO collection_entries (
	user_id,
	item_id,
	membership,
	notes,
	price_threshold,
	rating,
	updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, item_id) DO UPDATE SET
	membership      = CASE WHEN ? THEN excluded.membership ELSE collection_entries.membership END,
	notes           = CASE WHEN ? THEN excluded.notes ELSE collection_entries.notes END,
	price_threshold = CASE WHEN ? THEN excluded.price_threshold ELSE collection_entries.price_threshold END,
	rating          = CASE WHEN ? THEN excluded.rating ELSE collection_entries.rating END,
	updated_at      = excluded.updated_at
RETURNING membership, notes, price_threshold, rating
`,
		userID,
		int64(item),
		string(membership),
		nullString(change.Notes),
		nullFloat(change.PriceThreshold),
		rating,
		s.nowTime().UTC().UnixMilli(),
		change.Target != nil,
		change.Notes != nil,
		change.PriceThreshold != nil,
		change.Rating.Set,
	)

	entry, err := scanEntry(row, userID, item)
	if err != nil {
		return collection.Entry{}, fmt.Errorf("upsert entry: %w", err)
	}
	return entry, nil
}

// GetEntry returns nil when the row does not exist.
func (s *Store) GetEntry(ctx context.Context, userID string, item catalog.ItemID) (*collection.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT membership, notes, price_threshold, rating
FROM collection_entries
WHERE user_id = ? AND item_id = ?
`, userID, int64(item))

	entry, err := scanEntry(row, userID, item)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return &entry, nil
}

func (s *Store) DeleteEntry(ctx context.Context, userID string, item catalog.ItemID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM collection_entries WHERE user_id = ? AND item_id = ?`, userID, int64(item)); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// CountEntries returns how many rows exist for (userID, item); at most one.
func (s *Store) CountEntries(ctx context.Context, userID string, item catalog.ItemID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collection_entries WHERE user_id = ? AND item_id = ?`, userID, int64(item)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (s *Store) Get(ctx context.Context, userID string) (*credentials.AccessCredential, error) {
	var (
		credential = credentials.AccessCredential{UserID: userID}
		linkedAt   int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT access_token, access_token_secret, linked_at
FROM access_credentials
WHERE user_id = ?
`, userID).Scan(&credential.AccessToken, &credential.AccessTokenSecret, &linkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, credentials.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	credential.LinkedAt = time.UnixMilli(linkedAt).UTC()
	return &credential, nil
}

func (s *Store) Upsert(ctx context.Context, credential credentials.AccessCredential) error {
	if strings.TrimSpace(credential.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	linkedAt := credential.LinkedAt
	if linkedAt.IsZero() {
		linkedAt = s.nowTime()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO access_credentials (user_id, access_token, access_token_secret, linked_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
	access_token        = excluded.access_token,
	access_token_secret = excluded.access_token_secret,
	linked_at           = excluded.linked_at
`,
		credential.UserID,
		credential.AccessToken,
		credential.AccessTokenSecret,
		linkedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM access_credentials WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

func scanEntry(row *sql.Row, userID string, item catalog.ItemID) (collection.Entry, error) {
	var (
		membership string
		notes      sql.NullString
		price      sql.NullFloat64
		rating     sql.NullInt64
	)
	if err := row.Scan(&membership, &notes, &price, &rating); err != nil {
		return collection.Entry{}, err
	}

	entry := collection.Entry{
		UserID:     userID,
		ItemID:     item,
		Membership: collection.Membership(membership),
	}
	if notes.Valid {
		entry.Notes = &notes.String
	}
	if price.Valid {
		entry.PriceThreshold = &price.Float64
	}
	if rating.Valid {
		r := int(rating.Int64)
		entry.Rating = &r
	}
	return entry, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
