package engine

import "github.com/Veraticus/helpdesk-triage/internal/model"

// MergeClassification reconciles a ticket with the classifier's suggestion.
// Each field keeps the ticket's value when present, otherwise takes the
// suggestion's value when present, otherwise stays absent. A nil result
// leaves every missing field absent.
func MergeClassification(ticket model.Ticket, result *model.ClassificationResult) model.Ticket {
	var suggested model.ClassificationResult
	if result != nil {
		suggested = *result
	}

	merged := ticket
	merged.Category = pickText(ticket.Category, suggested.Category)
	merged.RequestType = pickText(ticket.RequestType, suggested.RequestType)
	merged.SLAUnit = pickText(ticket.SLAUnit, suggested.SLAUnit)
	merged.SLAValue = pickSLAValue(ticket.SLAValue, suggested.SLAValue)

	return merged
}

func pickText(existing, suggested string) string {
	if model.HasText(existing) {
		return model.NormalizeText(existing)
	}
	return model.NormalizeText(suggested)
}

func pickSLAValue(existing, suggested *int) *int {
	if v := model.NormalizeSLAValue(existing); v != nil {
		return v
	}
	return model.NormalizeSLAValue(suggested)
}
