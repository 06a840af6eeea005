package catalog

import "github.com/agentstation/eventdeck/pkg/constants"

// Category is a selectable event category. A nil ID is the "all categories"
// sentinel.
type Category struct {
	ID   *string `json:"id" yaml:"id"`
	Name string  `json:"name" yaml:"name"`
}

// All returns the "all categories" sentinel with the given display name.
func All(name string) Category {
	if name == "" {
		name = constants.AllCategoriesName
	}
	return Category{Name: name}
}

// IsAll reports whether c is the "all categories" sentinel.
func (c Category) IsAll() bool {
	return c.ID == nil
}

// Key returns the category id, or "all" for the sentinel.
func (c Category) Key() string {
	return CategoryKey(c.ID)
}

// CategoryKey renders an optional category id as a stable string.
func CategoryKey(id *string) string {
	if id == nil {
		return constants.AllCategoriesKey
	}
	return *id
}

// ID returns a pointer to a copy of s. Handy for literals.
func ID(s string) *string {
	return &s
}

// SameID reports whether two optional ids are equal.
func SameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// CloneID copies an optional id so callers cannot alias internal state.
func CloneID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
