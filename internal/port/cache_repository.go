package port

import (
	"context"
	"time"
)

type CacheRepository interface {
	// Get returns the value stored under key in the given group. The found
	// flag is false only on a true miss; a stored empty string comes back
	// as ("", true, nil).
	Get(ctx context.Context, group, key string) (value string, found bool, err error)

	// SetWithTTL stores a value under key in the given group, expiring
	// after ttl.
	SetWithTTL(ctx context.Context, group, key, value string, ttl time.Duration) error

	// Delete removes a key from the given group; deleting an absent key
	// is a no-op.
	Delete(ctx context.Context, group, key string) error
}
