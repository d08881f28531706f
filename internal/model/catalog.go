// Package model defines the core domain models used throughout the application.
package model

// SLA is a service level target, for example 24 hours.
type SLA struct {
	Unit  string
	Value int
}

// RequestType is a named kind of request within a catalog category.
type RequestType struct {
	Name string
	SLA  SLA
}

// ServiceCategory groups request types in the service catalog.
type ServiceCategory struct {
	Name         string
	RequestTypes []RequestType
}

// Catalog is the service catalog fetched once per run.
type Catalog struct {
	Categories []ServiceCategory
}

// RequestTypeCount returns the number of request types across all categories.
func (c *Catalog) RequestTypeCount() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, cat := range c.Categories {
		total += len(cat.RequestTypes)
	}
	return total
}
