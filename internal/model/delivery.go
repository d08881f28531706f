package model

import "time"

// DeliveryRecord marks a report artifact as already emailed.
// Records are keyed by the artifact's base filename.
type DeliveryRecord struct {
	SentAt   time.Time
	Filename string
}
