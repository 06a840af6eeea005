package catalog

import "context"

// EventQuery selects events from the catalog. A nil CategoryID means all
// categories.
type EventQuery struct {
	CategoryID *string
	Limit      int
}

// Service is the remote catalog. Implementations report every failure
// (non-2xx, malformed body, timeout) as a transient fetch error.
type Service interface {
	FetchCategories(ctx context.Context) ([]Category, error)
	FetchEvents(ctx context.Context, query EventQuery) ([]EventSummary, error)
}
