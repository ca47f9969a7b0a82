package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"ticket-hunter/pkg/models"

	"github.com/shopspring/decimal"
)

// AlertSummary is an alert with its most recent observation and the number of
// notifications sent for it.
type AlertSummary struct {
	models.Alert
	LatestPrice        decimal.NullDecimal `json:"latest_price"`
	LatestAvailability models.Availability `json:"latest_availability,omitempty"`
	LatestAt           *time.Time          `json:"latest_at,omitempty"`
	NotificationCount  int                 `json:"notification_count"`
}

func (s *Store) AlertSummaries(ctx context.Context) ([]AlertSummary, error) {
	alerts, err := s.Alerts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]AlertSummary, 0, len(alerts))
	for _, a := range alerts {
		sum := AlertSummary{Alert: a}

		var (
			availability sql.NullString
			at           sql.NullTime
		)
		err := s.db.QueryRowContext(ctx,
			`SELECT price, availability, timestamp FROM price_records
			 WHERE alert_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`,
			a.ID,
		).Scan(&sum.LatestPrice, &availability, &at)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return nil, persistErr("latest price", err)
		default:
			sum.LatestAvailability = models.Availability(availability.String)
			if at.Valid {
				t := at.Time
				sum.LatestAt = &t
			}
		}

		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM notification_logs WHERE alert_id = ?`, a.ID,
		).Scan(&sum.NotificationCount)
		if err != nil {
			return nil, persistErr("count notifications", err)
		}

		out = append(out, sum)
	}
	return out, nil
}

// PriceHistory returns the observations of an alert taken at or after since,
// oldest first.
func (s *Store) PriceHistory(ctx context.Context, alertID int64, since time.Time) ([]models.PriceObservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, alert_id, price, availability, timestamp, raw_data FROM price_records
		 WHERE alert_id = ? AND timestamp >= ? ORDER BY timestamp, id`,
		alertID, since.UTC(),
	)
	if err != nil {
		return nil, persistErr("query price history", err)
	}
	defer rows.Close()

	var out []models.PriceObservation
	for rows.Next() {
		var (
			o            models.PriceObservation
			availability string
			raw          sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.AlertID, &o.Price, &availability, &o.Timestamp, &raw); err != nil {
			return nil, persistErr("scan observation", err)
		}
		o.Availability = models.Availability(availability)
		if raw.Valid && raw.String != "" {
			if err := json.Unmarshal([]byte(raw.String), &o.RawData); err != nil {
				return nil, persistErr("decode raw data", err)
			}
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("query price history", err)
	}
	return out, nil
}

// Notifications returns the notification log of an alert, newest first.
func (s *Store) Notifications(ctx context.Context, alertID int64) ([]models.NotificationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, alert_id, sent_at, trigger_reason, price FROM notification_logs
		 WHERE alert_id = ? ORDER BY sent_at DESC, id DESC`,
		alertID,
	)
	if err != nil {
		return nil, persistErr("query notifications", err)
	}
	defer rows.Close()

	var out []models.NotificationRecord
	for rows.Next() {
		var (
			r      models.NotificationRecord
			reason string
		)
		if err := rows.Scan(&r.ID, &r.AlertID, &r.SentAt, &reason, &r.Price); err != nil {
			return nil, persistErr("scan notification", err)
		}
		r.TriggerReason = models.TriggerReason(reason)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("query notifications", err)
	}
	return out, nil
}
