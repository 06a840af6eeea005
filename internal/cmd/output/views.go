package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/eventdeck/internal/cmd/table"
	"github.com/agentstation/eventdeck/pkg/catalog"
)

// Categories is a category list with the current selection. JSON and YAML
// output only carry the list.
type Categories struct {
	Items    []catalog.Category
	Selected catalog.FilterState
}

// MarshalJSON writes the list alone.
func (c Categories) MarshalJSON() ([]byte, error) { return json.Marshal(c.Items) }

// MarshalYAML writes the list alone.
func (c Categories) MarshalYAML() (any, error) { return c.Items, nil }

// Events is a page of event summaries. IsSaved marks saved events in tables.
type Events struct {
	Items   []catalog.EventSummary
	IsSaved func(eventID string) bool
}

// MarshalJSON writes the list alone.
func (e Events) MarshalJSON() ([]byte, error) { return json.Marshal(e.Items) }

// MarshalYAML writes the list alone.
func (e Events) MarshalYAML() (any, error) { return e.Items, nil }

// Filter is the current selection and the address it is kept in.
type Filter struct {
	catalog.FilterState `yaml:",inline"`
	Location            string `json:"location" yaml:"location"`
}

// Property is one named value of a Properties view.
type Property struct {
	Key   string
	Value any
}

// Properties is an ordered set of settings. Empty values are left out.
// Tables title-case the keys; JSON and YAML keep them as given.
type Properties []Property

func (p Properties) present() Properties {
	out := make(Properties, 0, len(p))
	for _, prop := range p {
		if prop.Value == nil || prop.Value == "" {
			continue
		}
		out = append(out, prop)
	}
	return out
}

// MarshalJSON writes the properties as an object in their given order.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p.present() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(prop.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML writes the properties as a mapping in their given order.
func (p Properties) MarshalYAML() (any, error) {
	present := p.present()
	m := make(yaml.MapSlice, 0, len(present))
	for _, prop := range present {
		m = append(m, yaml.MapItem{Key: prop.Key, Value: prop.Value})
	}
	return m, nil
}

func (p Properties) tableData() Data {
	caser := cases.Title(language.English)
	present := p.present()
	rows := make([][]string, 0, len(present))
	for _, prop := range present {
		rows = append(rows, []string{
			caser.String(strings.ReplaceAll(prop.Key, "_", " ")),
			fmt.Sprintf("%v", prop.Value),
		})
	}
	return Data{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []table.Align{table.AlignLeft, table.AlignLeft},
	}
}

// FormatCategories writes categories, marking the selected one in tables.
func FormatCategories(w io.Writer, format Format, categories []catalog.Category, selected catalog.FilterState) error {
	return NewFormatter(format).Format(w, Categories{Items: categories, Selected: selected})
}

// FormatEvents writes event summaries. isSaved marks saved events in tables.
func FormatEvents(w io.Writer, format Format, events []catalog.EventSummary, isSaved func(string) bool) error {
	return NewFormatter(format).Format(w, Events{Items: events, IsSaved: isSaved})
}

// FormatBookmarks writes saved events.
func FormatBookmarks(w io.Writer, format Format, saved []catalog.SavedEventRecord) error {
	return NewFormatter(format).Format(w, saved)
}

// FormatFilter writes the current selection and the address it is kept in.
func FormatFilter(w io.Writer, format Format, state catalog.FilterState, location string) error {
	return NewFormatter(format).Format(w, Filter{FilterState: state, Location: location})
}

// FormatAny writes any data type. Useful for commands with custom structures.
func FormatAny(w io.Writer, format Format, data any) error {
	return NewFormatter(format).Format(w, data)
}
