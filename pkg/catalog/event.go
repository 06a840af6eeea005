package catalog

import (
	"github.com/agentstation/utc"
)

// EventSummary is a volunteering event as listed by the catalog.
// Summaries are immutable once fetched; identity is ID.
type EventSummary struct {
	ID                string     `json:"id" yaml:"id"`
	Title             string     `json:"title" yaml:"title"`
	Address           string     `json:"address" yaml:"address"`
	StartAt           utc.Time   `json:"startAt" yaml:"start_at"`
	EndAt             utc.Time   `json:"endAt" yaml:"end_at"`
	RegistrationCount int        `json:"registrationCount" yaml:"registration_count"`
	MaxApplicant      int        `json:"maxApplicant" yaml:"max_applicant"`
	BannerURL         string     `json:"bannerUrl" yaml:"banner_url"`
	Categories        []Category `json:"categories" yaml:"categories"`
}

// HasCategory reports whether the event is tagged with the given category.
// Every event belongs to the "all categories" sentinel.
func (e EventSummary) HasCategory(id *string) bool {
	if id == nil {
		return true
	}
	for _, c := range e.Categories {
		if c.ID != nil && *c.ID == *id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, used when snapshotting an event for bookmarks.
func (e EventSummary) Clone() EventSummary {
	out := e
	if e.Categories != nil {
		out.Categories = make([]Category, len(e.Categories))
		for i, c := range e.Categories {
			out.Categories[i] = Category{ID: CloneID(c.ID), Name: c.Name}
		}
	}
	return out
}

// SavedEventRecord is a bookmarked event: a snapshot of the summary taken at
// save time, so it stays viewable after the event leaves the catalog.
type SavedEventRecord struct {
	EventSummary
	SavedAt utc.Time `json:"savedAt" yaml:"saved_at"`
}

// FilterState is the currently selected category.
type FilterState struct {
	SelectedCategoryID   *string `json:"id" yaml:"id"`
	SelectedCategoryName string  `json:"name" yaml:"name"`
}

// Key returns the category part of a filter key.
func (f FilterState) Key() string {
	return CategoryKey(f.SelectedCategoryID)
}
