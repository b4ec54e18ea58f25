package commands

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// requestHash canonicalizes the business parameters of a reservation
// request so that two requests with identical parameters always produce
// the same digest regardless of field ordering or formatting on the wire.
func requestHash(req ReserveInput) string {
	canonical := fmt.Sprintf("%s|%s|%s|%s|%d",
		req.UserID,
		req.RoomTypeID,
		req.StartDate.UTC().Format("2006-01-02"),
		req.EndDate.UTC().Format("2006-01-02"),
		req.RoomsBooked,
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// fingerprintFor returns the deduplication key for a request: the
// caller-supplied idempotency key when present, otherwise the derived
// parameter digest. A derived fingerprint can never mismatch its own
// request hash, so parameter-reuse detection only fires on explicit keys.
func fingerprintFor(req ReserveInput) string {
	if req.IdempotencyKey != "" {
		return req.IdempotencyKey
	}
	return requestHash(req)
}
