package table

import (
	"fmt"
	"strings"

	"github.com/agentstation/eventdeck/internal/cmd/emoji"
	"github.com/agentstation/eventdeck/pkg/catalog"
	"github.com/agentstation/eventdeck/pkg/constants"
)

// CategoriesToTableData converts categories to table format, marking the
// selected one.
func CategoriesToTableData(categories []catalog.Category, selected catalog.FilterState) Data {
	rows := make([][]string, 0, len(categories))
	for _, c := range categories {
		mark := ""
		if catalog.SameID(c.ID, selected.SelectedCategoryID) {
			mark = emoji.Success
		}
		rows = append(rows, []string{mark, c.Key(), c.Name})
	}
	return Data{
		Headers:         []string{"", "ID", "Name"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignCenter, AlignRight, AlignLeft},
	}
}

// EventsToTableData converts events to table format. isSaved marks saved
// events; wide adds the address and banner columns.
func EventsToTableData(events []catalog.EventSummary, isSaved func(string) bool, wide bool) Data {
	headers := []string{"", "ID", "Title", "Starts", "Seats", "Categories"}
	align := []Align{AlignCenter, AlignRight, AlignLeft, AlignLeft, AlignRight, AlignLeft}
	if wide {
		headers = append(headers, "Address", "Banner")
		align = append(align, AlignLeft, AlignLeft)
	}

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		mark := ""
		if isSaved != nil && isSaved(e.ID) {
			mark = emoji.Success
		}
		row := []string{mark, e.ID, e.Title, formatTime(e), seats(e), categoryNames(e.Categories)}
		if wide {
			row = append(row, orDash(e.Address), orDash(e.BannerURL))
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// BookmarksToTableData converts saved events to table format, newest first
// as given.
func BookmarksToTableData(saved []catalog.SavedEventRecord) Data {
	rows := make([][]string, 0, len(saved))
	for _, r := range saved {
		rows = append(rows, []string{
			r.ID,
			r.Title,
			formatTime(r.EventSummary),
			r.SavedAt.Time.Local().Format(constants.TimeFormatHuman),
		})
	}
	return Data{
		Headers:         []string{"ID", "Title", "Starts", "Saved"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignLeft, AlignLeft},
	}
}

// FilterToTableData renders the current selection and where it came from.
func FilterToTableData(state catalog.FilterState, location string) Data {
	return Data{
		Headers: []string{"Property", "Value"},
		Rows: [][]string{
			{"Category", state.Key()},
			{"Name", state.SelectedCategoryName},
			{"Location", location},
		},
	}
}

func formatTime(e catalog.EventSummary) string {
	if e.StartAt.Time.IsZero() {
		return emoji.Optional
	}
	return e.StartAt.Time.Local().Format(constants.TimeFormatHuman)
}

func seats(e catalog.EventSummary) string {
	if e.MaxApplicant <= 0 {
		return fmt.Sprintf("%d", e.RegistrationCount)
	}
	return fmt.Sprintf("%d/%d", e.RegistrationCount, e.MaxApplicant)
}

func categoryNames(categories []catalog.Category) string {
	if len(categories) == 0 {
		return emoji.Optional
	}
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

func orDash(s string) string {
	if s == "" {
		return emoji.Optional
	}
	return s
}
