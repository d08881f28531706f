package engine

import "github.com/Veraticus/helpdesk-triage/internal/model"

type catalogKey struct {
	category    string
	requestType string
}

// CatalogIndex maps (category, request type) pairs to their SLA.
// Lookups are exact and case-sensitive.
type CatalogIndex struct {
	entries map[catalogKey]model.SLA
}

// NewCatalogIndex indexes every request type in the catalog.
// A duplicated pair keeps the last definition.
func NewCatalogIndex(catalog *model.Catalog) *CatalogIndex {
	idx := &CatalogIndex{entries: make(map[catalogKey]model.SLA)}
	if catalog == nil {
		return idx
	}

	for _, category := range catalog.Categories {
		for _, requestType := range category.RequestTypes {
			idx.entries[catalogKey{category.Name, requestType.Name}] = requestType.SLA
		}
	}
	return idx
}

// Lookup returns the SLA for the pair, if any.
func (i *CatalogIndex) Lookup(category, requestType string) (model.SLA, bool) {
	sla, ok := i.entries[catalogKey{category, requestType}]
	return sla, ok
}

// Len returns the number of indexed pairs.
func (i *CatalogIndex) Len() int {
	return len(i.entries)
}
