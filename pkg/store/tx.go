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

// Tx groups the writes of one alert check. Nothing is visible to other
// readers until Commit.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) TouchChecked(ctx context.Context, alertID int64, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE alerts SET last_checked = ? WHERE id = ?`, at.UTC(), alertID)
	if err != nil {
		return persistErr("touch checked", err)
	}
	return nil
}

func (t *Tx) SetLastNotified(ctx context.Context, alertID int64, price decimal.Decimal) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE alerts SET last_notified_price = ? WHERE id = ?`, price, alertID)
	if err != nil {
		return persistErr("set last notified", err)
	}
	return nil
}

func (t *Tx) AddObservation(ctx context.Context, obs *models.PriceObservation) error {
	raw, err := json.Marshal(obs.RawData)
	if err != nil {
		return persistErr("encode raw data", err)
	}

	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO price_records (alert_id, price, availability, timestamp, raw_data)
		 VALUES (?, ?, ?, ?, ?)`,
		obs.AlertID, obs.Price, string(obs.Availability), obs.Timestamp.UTC(), string(raw),
	)
	if err != nil {
		return persistErr("insert observation", err)
	}
	obs.ID, _ = res.LastInsertId()
	return nil
}

func (t *Tx) AddNotification(ctx context.Context, rec *models.NotificationRecord) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO notification_logs (alert_id, sent_at, trigger_reason, price)
		 VALUES (?, ?, ?, ?)`,
		rec.AlertID, rec.SentAt.UTC(), string(rec.TriggerReason), rec.Price,
	)
	if err != nil {
		return persistErr("insert notification", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return persistErr("commit", err)
	}
	return nil
}

// Rollback is a no-op after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return persistErr("rollback", err)
}
