// Package limiter throttles failed login attempts per (handle, client) pair.
package limiter

import (
	"context"
	"crypto/sha256"
	"time"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether a login is currently allowed and, if not, the retry-after.
	Allow(ctx context.Context, handle string, client []byte) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, handle string, client []byte) error
	// Failure records a failed attempt and reports whether it placed a block.
	Failure(ctx context.Context, handle string, client []byte) (bool, time.Duration, error)
}

// Params bound the sliding window: MaxFails failures within Window block
// the pair for BlockFor.
type Params struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}

// DefaultParams are used by the server when configuration leaves them zero.
var DefaultParams = Params{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 15 * time.Minute}

// HashClient returns a stable hash of a client address so raw addresses are not stored.
func HashClient(addr string) []byte {
	h := sha256.Sum256([]byte(addr))
	return h[:]
}
