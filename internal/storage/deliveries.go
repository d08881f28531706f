package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/model"
)

// legacyTimeLayout is the naive timestamp format written by older ledgers.
const legacyTimeLayout = "2006-01-02T15:04:05"

// GetDeliveryRecord returns the record for filename or common.ErrDeliveryNotFound.
func (s *SQLiteStorage) GetDeliveryRecord(ctx context.Context, filename string) (*model.DeliveryRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFilename(filename); err != nil {
		return nil, err
	}

	var sentAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT sent_at FROM deliveries WHERE filename = ?`, filename,
	).Scan(&sentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrDeliveryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery record: %w", err)
	}

	ts, err := parseSentAt(sentAt)
	if err != nil {
		return nil, fmt.Errorf("delivery record %s: %w", filename, err)
	}

	return &model.DeliveryRecord{
		Filename: filename,
		SentAt:   ts,
	}, nil
}

// MarkSent records filename as delivered at sentAt. Marking twice keeps a
// single record holding the latest timestamp.
func (s *SQLiteStorage) MarkSent(ctx context.Context, filename string, sentAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFilename(filename); err != nil {
		return err
	}
	if sentAt.IsZero() {
		return ErrZeroTime
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (filename, sent_at)
		VALUES (?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			sent_at = excluded.sent_at
	`, filename, sentAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to mark %s as sent: %w", filename, err)
	}

	return nil
}

// ListDeliveries returns all records, most recent first.
func (s *SQLiteStorage) ListDeliveries(ctx context.Context) ([]model.DeliveryRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, sent_at FROM deliveries ORDER BY sent_at DESC, filename`)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.DeliveryRecord
	for rows.Next() {
		var filename, sentAt string
		if err := rows.Scan(&filename, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		ts, err := parseSentAt(sentAt)
		if err != nil {
			return nil, fmt.Errorf("delivery record %s: %w", filename, err)
		}
		records = append(records, model.DeliveryRecord{Filename: filename, SentAt: ts})
	}

	return records, rows.Err()
}

// DeleteDelivery removes the record for filename so the artifact is sent again
// on the next run. The pipeline itself never deletes records.
func (s *SQLiteStorage) DeleteDelivery(ctx context.Context, filename string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFilename(filename); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM deliveries WHERE filename = ?`, filename)
	if err != nil {
		return fmt.Errorf("failed to delete delivery: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return common.ErrDeliveryNotFound
	}

	return nil
}

func parseSentAt(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation(legacyTimeLayout, trimFraction(value), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q: %w", value, err)
	}
	return ts, nil
}

// trimFraction drops fractional seconds from naive timestamps like 2024-05-01T10:00:00.123456.
func trimFraction(value string) string {
	if len(value) > len(legacyTimeLayout) && value[len(legacyTimeLayout)] == '.' {
		return value[:len(legacyTimeLayout)]
	}
	return value
}
