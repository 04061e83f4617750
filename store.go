package emailchange

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenStore is the durable table of pending email-change requests. All four
// operations are safe to call concurrently; Consume and PurgeExpired racing on
// the same token resolve through the database's atomic conditional delete, so
// at most one caller ever observes a successful consume for a given token.
type TokenStore interface {
	Create(ctx context.Context, memberID, oldEmail, newEmail string, ttl time.Duration) (*EmailChangeRequest, error)
	Peek(ctx context.Context, token string) (*EmailChangeRequest, error)
	Consume(ctx context.Context, token string) (*EmailChangeRequest, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// Store implements TokenStore over the email_change table.
type Store struct {
	db *bun.DB
}

var _ TokenStore = (*Store)(nil)

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Create inserts a pending request keyed by a fresh crypto-random token and
// returns the stored row. The token is globally unique; concurrent requests
// for the same member each get their own token and the first confirmed wins.
func (s *Store) Create(ctx context.Context, memberID, oldEmail, newEmail string, ttl time.Duration) (*EmailChangeRequest, error) {
	now := time.Now().UTC()
	rec := &EmailChangeRequest{
		Token:     uuid.NewString(),
		MemberID:  memberID,
		OldEmail:  oldEmail,
		NewEmail:  newEmail,
		Status:    StatusPending,
		ExpiresAt: now.Add(ttl),
		CreatedAt: &now,
		UpdatedAt: &now,
	}

	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert email change request")
	}

	return rec, nil
}

// Peek returns the pending request for token without mutating it. Absent and
// expired rows are both reported as not found so an invalid link can never
// spend a different, still-valid token.
func (s *Store) Peek(ctx context.Context, token string) (*EmailChangeRequest, error) {
	rec := new(EmailChangeRequest)

	err := s.db.NewSelect().
		Model(rec).
		Where("token = ?", token).
		Where("expires_at > ?", time.Now().UTC()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errTokenNotFound()
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up email change request")
	}

	return rec, nil
}

// Consume atomically deletes and returns the row, but only while it is still
// unexpired. A single conditional DELETE guarantees exactly one winner between
// concurrent confirms and the janitor's sweep.
func (s *Store) Consume(ctx context.Context, token string) (*EmailChangeRequest, error) {
	rec := new(EmailChangeRequest)

	err := s.db.NewDelete().
		Model(rec).
		Where("token = ?", token).
		Where("expires_at > ?", time.Now().UTC()).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errTokenNotFound()
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume email change request")
	}

	return rec, nil
}

// PurgeExpired deletes every row past its deadline and returns the count.
// Idempotent; safe to run concurrently with any other store operation.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*EmailChangeRequest)(nil)).
		Where("expires_at <= ?", time.Now().UTC()).
		Exec(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to purge expired email change requests")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
