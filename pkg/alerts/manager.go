// Package alerts runs the per-alert check: scrape, record, decide, notify.
package alerts

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ticket-hunter/pkg/logger"
	"ticket-hunter/pkg/metrics"
	"ticket-hunter/pkg/models"
	"ticket-hunter/pkg/notify"
	"ticket-hunter/pkg/scrapers"

	"github.com/shopspring/decimal"
)

// Store is the alert persistence the manager needs.
type Store interface {
	ActiveAlerts(ctx context.Context) ([]models.Alert, error)
	Begin(ctx context.Context) (Tx, error)
}

// Tx groups the writes of one alert check. Rollback after Commit must be a
// no-op.
type Tx interface {
	TouchChecked(ctx context.Context, alertID int64, at time.Time) error
	SetLastNotified(ctx context.Context, alertID int64, price decimal.Decimal) error
	AddObservation(ctx context.Context, obs *models.PriceObservation) error
	AddNotification(ctx context.Context, rec *models.NotificationRecord) error
	Commit() error
	Rollback() error
}

// Notifier delivers a price event. It reports delivery failures as false.
type Notifier interface {
	Send(ctx context.Context, p notify.Payload) bool
}

// Scraper fetches the current listing state for a source profile.
type Scraper interface {
	Scrape(ctx context.Context, p scrapers.Profile, url string) (models.ScrapeResult, error)
}

// Stats tallies one pass over all active alerts.
type Stats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// Skipped counts alerts left unchecked because shutdown began mid-pass.
	Skipped int `json:"skipped,omitempty"`
}

type Manager struct {
	store    Store
	scraper  Scraper
	notifier Notifier
	metrics  *metrics.Metrics
	log      logger.Logger
	noPrice  *logger.Dedup
	now      func() time.Time
}

func NewManager(store Store, scraper Scraper, notifier Notifier, m *metrics.Metrics, log logger.Logger) *Manager {
	return &Manager{
		store:    store,
		scraper:  scraper,
		notifier: notifier,
		metrics:  m,
		log:      log,
		noPrice:  logger.NewDedup(log, time.Minute),
		now:      time.Now,
	}
}

// ProcessAll checks every active alert in turn. A failing alert is counted
// and skipped; it never stops the rest of the pass. Once ctx is cancelled
// the alerts not yet started are left for the next run.
func (m *Manager) ProcessAll(ctx context.Context) (Stats, error) {
	start := time.Now()
	defer func() { m.metrics.ObservePass(time.Since(start)) }()

	active, err := m.store.ActiveAlerts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load active alerts: %w", err)
	}
	m.log.Info("Processing active alerts", logger.Int("count", len(active)))

	stats := Stats{Total: len(active)}
	for i, a := range active {
		if ctx.Err() != nil {
			stats.Skipped = len(active) - i
			m.log.Info("Shutdown requested, skipping remaining alerts", logger.Int("skipped", stats.Skipped))
			break
		}
		if err := m.ProcessAlert(ctx, a); err != nil {
			stats.Failed++
			continue
		}
		stats.Succeeded++
	}
	m.noPrice.Flush()

	m.log.Info("Alert processing complete",
		logger.Int("total", stats.Total),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("failed", stats.Failed),
		logger.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// ProcessAlert runs one check. Once the scrape has started it runs to
// completion even if ctx is cancelled.
func (m *Manager) ProcessAlert(ctx context.Context, a models.Alert) (err error) {
	log := m.log.With(
		logger.String("alert", a.Name),
		logger.Int64("alert_id", a.ID),
		logger.String("source", a.Source),
	)
	defer func() {
		m.metrics.AlertProcessed(err == nil)
		if err != nil {
			log.Error("Error processing alert", logger.Error(err))
		}
	}()

	profile, err := scrapers.Lookup(a.Source)
	if err != nil {
		return fmt.Errorf("alert %q: %w", a.Name, err)
	}

	log.Info("Processing alert")
	work := context.WithoutCancel(ctx)

	res, scrapeErr := m.scraper.Scrape(work, profile, a.URL)
	checkedAt := m.now()

	if scrapeErr != nil {
		stamp := func(tx Tx) error { return tx.TouchChecked(work, a.ID, checkedAt) }
		if err := m.inTx(work, stamp); err != nil {
			log.Warn("Failed to record check time", logger.Error(err))
		}
		return fmt.Errorf("scrape alert %q: %w", a.Name, scrapeErr)
	}

	return m.inTx(work, func(tx Tx) error {
		return m.record(work, tx, a, res, checkedAt, log)
	})
}

func (m *Manager) inTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := m.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Manager) record(ctx context.Context, tx Tx, a models.Alert, res models.ScrapeResult, at time.Time, log logger.Logger) error {
	if err := tx.TouchChecked(ctx, a.ID, at); err != nil {
		return err
	}

	if !res.Price.Valid {
		m.noPrice.WarnKey(strconv.FormatInt(a.ID, 10), "Could not extract price, the page structure may have changed",
			logger.String("alert", a.Name),
			logger.String("availability", string(res.Availability)),
		)
		return nil
	}
	price := res.Price.Decimal

	obs := &models.PriceObservation{
		AlertID:      a.ID,
		Price:        price,
		Availability: res.Availability,
		Timestamp:    at,
		RawData:      res.RawData,
	}
	if err := tx.AddObservation(ctx, obs); err != nil {
		return err
	}
	m.metrics.SetPrice(a.Name, price.InexactFloat64())

	fire, reason := notify.Decide(a.TargetPrice, a.LastNotifiedPrice, price)
	if fire {
		log.Info("Notification triggered",
			logger.String("reason", string(reason)),
			logger.String("price", price.StringFixed(2)),
		)
		if err := m.notify(ctx, tx, a, price, reason, log); err != nil {
			return err
		}
	} else {
		log.Debug("No notification needed",
			logger.String("price", price.StringFixed(2)),
			logger.String("target", a.TargetPrice.StringFixed(2)),
		)
	}

	log.Info("Successfully processed alert",
		logger.String("price", price.StringFixed(2)),
		logger.String("availability", string(res.Availability)),
	)
	return nil
}

// notify sends and, only when the send went through, records the new
// notified price. A failed send keeps the trigger armed for the next pass.
func (m *Manager) notify(ctx context.Context, tx Tx, a models.Alert, price decimal.Decimal, reason models.TriggerReason, log logger.Logger) error {
	sent := m.notifier.Send(ctx, notify.Payload{
		AlertName:     a.Name,
		CurrentPrice:  price,
		TargetPrice:   a.TargetPrice,
		URL:           a.URL,
		Reason:        reason,
		PreviousPrice: a.LastNotifiedPrice,
	})
	m.metrics.Notification(string(reason), sent)
	if !sent {
		log.Warn("Notification not delivered, will retry next cycle")
		return nil
	}

	if err := tx.SetLastNotified(ctx, a.ID, price); err != nil {
		return err
	}
	return tx.AddNotification(ctx, &models.NotificationRecord{
		AlertID:       a.ID,
		SentAt:        m.now(),
		TriggerReason: reason,
		Price:         price,
	})
}
