package commands

import "stayd/internal/pkg/errs"

// Business-rule rejections are terminal: they are returned as typed
// results and must never be retried automatically. Contention errors are
// the only retryable class, and storage failures are surfaced as-is.
var (
	ErrRoomTypeNotFound       = errs.New("room type not found")
	ErrBookingNotFound        = errs.New("booking not found")
	ErrInvalidDateRange       = errs.New("invalid date range")
	ErrInvalidRoomCount       = errs.New("invalid room count")
	ErrInsufficientInventory  = errs.New("insufficient inventory")
	ErrConflictRetryExhausted = errs.New("conflict retries exhausted")
	ErrIdempotencyKeyReused   = errs.New("idempotency key reused with different parameters")
	ErrAlreadyCancelled       = errs.New("booking already cancelled")
	ErrCancellationForbidden  = errs.New("cancellation not allowed for this actor")
	ErrForbidden              = errs.New("actor may not act on this booking")
	ErrInventoryOutOfBounds   = errs.New("inventory adjustment out of capacity bounds")
	ErrStorageFailure         = errs.New("storage operation failed")
)
