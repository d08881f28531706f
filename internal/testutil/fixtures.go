package testutil

import "github.com/Veraticus/helpdesk-triage/internal/model"

// SampleCatalog returns a small catalog covering the keyword suggestions of
// engine.MockClassifier. Network/VPN Access has an SLA of zero hours.
func SampleCatalog() *model.Catalog {
	return &model.Catalog{Categories: []model.ServiceCategory{
		{Name: "Access", RequestTypes: []model.RequestType{
			{Name: "Password Reset", SLA: model.SLA{Unit: "hours", Value: 4}},
			{Name: "New Account", SLA: model.SLA{Unit: "days", Value: 1}},
		}},
		{Name: "Hardware", RequestTypes: []model.RequestType{
			{Name: "Device Repair", SLA: model.SLA{Unit: "days", Value: 2}},
		}},
		{Name: "Network", RequestTypes: []model.RequestType{
			{Name: "VPN Access", SLA: model.SLA{Unit: "hours", Value: 0}},
		}},
	}}
}

// Ticket builds an unclassified ticket with a raw payload mirroring it.
func Ticket(id, description string) model.Ticket {
	return model.Ticket{
		ID:               id,
		ShortDescription: description,
		RawPayload:       map[string]any{"id": id, "short_description": description},
	}
}
