package catalog

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/eventdeck/pkg/errors"
)

// envelope is the response body shape of every catalog endpoint.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// wireID accepts an id sent as a JSON string, a JSON number or null.
type wireID struct {
	value *string
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *wireID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		w.value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			w.value = nil
			return nil
		}
		w.value = &s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	s = n.String()
	w.value = &s
	return nil
}

type wireCategory struct {
	ID   wireID `json:"id"`
	Name string `json:"name"`
}

type wireEvent struct {
	ID                wireID         `json:"id"`
	Title             string         `json:"title"`
	Address           string         `json:"address"`
	StartAt           string         `json:"startAt"`
	EndAt             string         `json:"endAt"`
	RegistrationCount int            `json:"registrationCount"`
	MaxApplicant      int            `json:"maxApplicant"`
	BannerURL         string         `json:"bannerUrl"`
	Categories        []wireCategory `json:"categories"`
}

// NormalizeCategories decodes a categories response body into Categories.
// Entries without an id are dropped and ids are deduplicated, keeping the
// first occurrence.
func NormalizeCategories(body []byte) ([]Category, error) {
	var items []wireCategory
	if err := decodeData(body, &items); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(items))
	out := make([]Category, 0, len(items))
	for _, item := range items {
		if item.ID.value == nil || seen[*item.ID.value] {
			continue
		}
		seen[*item.ID.value] = true
		out = append(out, Category{ID: item.ID.value, Name: strings.TrimSpace(item.Name)})
	}
	return out, nil
}

// NormalizeEvents decodes an events response body into EventSummaries.
// Events without an id are dropped. Timestamps are RFC 3339; anything else
// is left as the zero time rather than failing the whole page.
func NormalizeEvents(body []byte) ([]EventSummary, error) {
	var items []wireEvent
	if err := decodeData(body, &items); err != nil {
		return nil, err
	}

	out := make([]EventSummary, 0, len(items))
	for _, item := range items {
		if item.ID.value == nil {
			continue
		}
		event := EventSummary{
			ID:                *item.ID.value,
			Title:             item.Title,
			Address:           item.Address,
			StartAt:           parseTime(item.StartAt),
			EndAt:             parseTime(item.EndAt),
			RegistrationCount: item.RegistrationCount,
			MaxApplicant:      item.MaxApplicant,
			BannerURL:         item.BannerURL,
			Categories:        make([]Category, 0, len(item.Categories)),
		}
		for _, c := range item.Categories {
			event.Categories = append(event.Categories, Category{ID: c.ID.value, Name: c.Name})
		}
		out = append(out, event)
	}
	return out, nil
}

func decodeData(body []byte, target any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errors.WrapParse("json", "", err)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return errors.NewParseError("json", "", "response has no data field", nil)
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return errors.WrapParse("json", "", err)
	}
	return nil
}

func parseTime(s string) utc.Time {
	if s == "" {
		return utc.Time{}
	}
	t, err := utc.Parse(time.RFC3339, s)
	if err != nil {
		return utc.Time{}
	}
	return t
}
