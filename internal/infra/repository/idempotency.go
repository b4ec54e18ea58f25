package repository

import (
	"context"
	"time"

	"stayd/internal/infra"
	"stayd/internal/infra/db"
	"stayd/internal/pkg/pgconv"
	"stayd/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type IdempotencyRepository struct {
	db db.DBTX
}

func NewIdempotencyRepository(dbtx db.DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{db: dbtx}
}

const tryInsertFingerprintQuery = `
INSERT INTO idempotency_keys (fingerprint, user_id, request_hash, status, expires_at)
VALUES ($1, $2, $3, 'processing', $4)
ON CONFLICT (fingerprint) DO NOTHING`

// TryInsert races to register the fingerprint. Exactly one concurrent
// caller observes true; everyone else lost to an existing row.
func (r *IdempotencyRepository) TryInsert(ctx context.Context, fingerprint string, userID uuid.UUID, requestHash string, expiresAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, tryInsertFingerprintQuery,
		fingerprint, pgconv.UUIDToPgtype(userID), requestHash, pgconv.TimeToPgtype(expiresAt))
	if err != nil {
		return false, infra.WrapRepoErr("failed to insert idempotency key", err)
	}
	return tag.RowsAffected() == 1, nil
}

const getFingerprintQuery = `
SELECT fingerprint, user_id, request_hash, status, result_booking_id, expires_at, created_at
FROM idempotency_keys
WHERE fingerprint = $1`

func (r *IdempotencyRepository) Get(ctx context.Context, fingerprint string) (*shared.IdempotencyRecord, error) {
	var (
		rec       shared.IdempotencyRecord
		userID    pgtype.UUID
		resultID  pgtype.UUID
		expiresAt pgtype.Timestamptz
		createdAt pgtype.Timestamptz
	)
	row := r.db.QueryRow(ctx, getFingerprintQuery, fingerprint)
	if err := row.Scan(&rec.Fingerprint, &userID, &rec.RequestHash, &rec.Status, &resultID, &expiresAt, &createdAt); err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("idempotency key not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get idempotency key", err)
	}
	rec.UserID = uuid.UUID(userID.Bytes)
	rec.ResultBookingID = pgconv.UUIDPtrFromPgtype(resultID)
	rec.ExpiresAt = pgconv.TimeFromPgtype(expiresAt)
	rec.CreatedAt = pgconv.TimeFromPgtype(createdAt)
	return &rec, nil
}

const markCompletedQuery = `
UPDATE idempotency_keys
SET status = 'completed', result_booking_id = $2, updated_at = now()
WHERE fingerprint = $1`

func (r *IdempotencyRepository) MarkCompleted(ctx context.Context, fingerprint string, bookingID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, markCompletedQuery, fingerprint, pgconv.UUIDToPgtype(bookingID))
	if err != nil {
		return infra.WrapRepoErr("failed to complete idempotency key", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("idempotency key vanished before completion", nil, infra.KindNotFound)
	}
	return nil
}

const deleteFingerprintQuery = `DELETE FROM idempotency_keys WHERE fingerprint = $1`

// Delete unwinds a failed registration so the fingerprint becomes reusable.
func (r *IdempotencyRepository) Delete(ctx context.Context, fingerprint string) error {
	if _, err := r.db.Exec(ctx, deleteFingerprintQuery, fingerprint); err != nil {
		return infra.WrapRepoErr("failed to delete idempotency key", err)
	}
	return nil
}

const claimExpiredQuery = `
UPDATE idempotency_keys
SET user_id = $2, request_hash = $3, status = 'processing',
    result_booking_id = NULL, expires_at = $4, updated_at = now()
WHERE fingerprint = $1 AND expires_at < now()`

// ClaimExpired takes over a stale fingerprint. The expiry predicate makes
// concurrent claims race safely: only one update can match.
func (r *IdempotencyRepository) ClaimExpired(ctx context.Context, fingerprint string, userID uuid.UUID, requestHash string, expiresAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, claimExpiredQuery,
		fingerprint, pgconv.UUIDToPgtype(userID), requestHash, pgconv.TimeToPgtype(expiresAt))
	if err != nil {
		return false, infra.WrapRepoErr("failed to claim expired idempotency key", err)
	}
	return tag.RowsAffected() == 1, nil
}

const deleteExpiredQuery = `DELETE FROM idempotency_keys WHERE expires_at < now() AND status = 'completed'`

func (r *IdempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, deleteExpiredQuery)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to delete expired idempotency keys", err)
	}
	return tag.RowsAffected(), nil
}
