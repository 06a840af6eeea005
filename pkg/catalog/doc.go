// Package catalog defines the data exchanged with the remote event catalog:
// categories, event summaries and saved-event snapshots, plus the Service
// contract the rest of eventdeck fetches through.
//
// The wire format of the catalog API is normalized in exactly one place,
// NormalizeCategories and NormalizeEvents. Everything downstream works with
// the types in this package and never inspects raw responses.
package catalog
