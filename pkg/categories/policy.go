package categories

import (
	"time"

	"github.com/agentstation/eventdeck/pkg/catalog"
)

// Snapshot is what a CacheValidityPolicy judges: the categories held in
// durable storage and when they were written.
type Snapshot struct {
	Categories []catalog.Category
	CachedAt   time.Time // zero when unknown
	Defaults   int       // size of the static default set
}

// CacheValidityPolicy decides whether cached categories can be served
// without a network call.
type CacheValidityPolicy interface {
	Valid(s Snapshot, now time.Time) bool
}

// PolicyFunc adapts a function to CacheValidityPolicy.
type PolicyFunc func(s Snapshot, now time.Time) bool

// Valid implements CacheValidityPolicy.
func (f PolicyFunc) Valid(s Snapshot, now time.Time) bool {
	return f(s, now)
}

// SizePolicy treats a cache that holds more categories than the default set
// as enriched by the server, and therefore valid forever.
type SizePolicy struct{}

// Valid implements CacheValidityPolicy.
func (SizePolicy) Valid(s Snapshot, _ time.Time) bool {
	return len(s.Categories) > s.Defaults
}

// TTLPolicy treats a cache as valid for TTL after it was written.
type TTLPolicy struct {
	TTL time.Duration
}

// Valid implements CacheValidityPolicy.
func (p TTLPolicy) Valid(s Snapshot, now time.Time) bool {
	if len(s.Categories) == 0 || s.CachedAt.IsZero() {
		return false
	}
	return now.Sub(s.CachedAt) < p.TTL
}
