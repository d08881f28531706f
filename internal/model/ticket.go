package model

import "strings"

// Ticket is a single helpdesk request as it flows through the enrichment pipeline.
// Empty strings and a nil SLAValue mean the field is absent.
type Ticket struct {
	RawPayload       map[string]any // Source record, kept verbatim
	SLAValue         *int
	ID               string
	ShortDescription string
	Category         string
	RequestType      string
	SLAUnit          string
}

// NormalizeText trims a text field. The result is empty when the field is absent.
func NormalizeText(s string) string {
	return strings.TrimSpace(s)
}

// HasText reports whether a text field is present.
func HasText(s string) bool {
	return NormalizeText(s) != ""
}

// NormalizeSLAValue returns v when it is a positive integer and nil otherwise.
// Zero and negative values read from a ticket or a classifier count as missing.
func NormalizeSLAValue(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	n := *v
	return &n
}

// HasSLAValue reports whether an SLA value is present.
func HasSLAValue(v *int) bool {
	return NormalizeSLAValue(v) != nil
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}

// HasSLA reports whether both SLA fields are present.
func (t *Ticket) HasSLA() bool {
	return HasText(t.SLAUnit) && HasSLAValue(t.SLAValue)
}

// NeedsClassification reports whether any classification field is still missing.
func (t *Ticket) NeedsClassification() bool {
	return !HasText(t.Category) ||
		!HasText(t.RequestType) ||
		!t.HasSLA()
}

// ClassificationResult is the classifier's suggestion for one ticket.
// The same presence rules as Ticket apply.
type ClassificationResult struct {
	SLAValue    *int
	Category    string
	RequestType string
	SLAUnit     string
}
