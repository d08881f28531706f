// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/model"
	"github.com/Veraticus/helpdesk-triage/internal/storage"
)

// TestLedger is a migrated in-memory delivery ledger.
type TestLedger struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestLedger creates an in-memory ledger seeded with records. It is
// closed when the test finishes.
//
// Example:
//
//	ledger := testutil.SetupTestLedger(t,
//		model.DeliveryRecord{Filename: "a.xlsx", SentAt: time.Now()},
//	)
func SetupTestLedger(t *testing.T, seed ...model.DeliveryRecord) *TestLedger {
	t.Helper()

	db, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test ledger: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for _, record := range seed {
		if err := db.MarkSent(ctx, record.Filename, record.SentAt); err != nil {
			t.Fatalf("failed to seed delivery %q: %v", record.Filename, err)
		}
	}

	return &TestLedger{Storage: db, t: t}
}

// Delivered reports whether filename has a delivery record.
func (l *TestLedger) Delivered(filename string) bool {
	l.t.Helper()
	_, err := l.Storage.GetDeliveryRecord(context.Background(), filename)
	if err == nil {
		return true
	}
	if !errors.Is(err, common.ErrDeliveryNotFound) {
		l.t.Fatalf("failed to read delivery %q: %v", filename, err)
	}
	return false
}

// MustSentAt returns when filename was delivered or fails the test.
func (l *TestLedger) MustSentAt(filename string) time.Time {
	l.t.Helper()
	record, err := l.Storage.GetDeliveryRecord(context.Background(), filename)
	if err != nil {
		l.t.Fatalf("no delivery for %q: %v", filename, err)
	}
	return record.SentAt
}
