package alerts

import (
	"context"
	"errors"
	"sync"
	"time"

	"ticket-hunter/pkg/logger"
	"ticket-hunter/pkg/models"
	"ticket-hunter/pkg/notify"
	"ticket-hunter/pkg/scrapers"

	"github.com/shopspring/decimal"
)

// memStore keeps committed state in maps; a tx buffers writes until Commit.
type memStore struct {
	mu            sync.Mutex
	alerts        map[int64]*models.Alert
	observations  []models.PriceObservation
	notifications []models.NotificationRecord
	failOn        map[int64]error
}

func newMemStore(alerts ...models.Alert) *memStore {
	s := &memStore{alerts: map[int64]*models.Alert{}, failOn: map[int64]error{}}
	for i := range alerts {
		a := alerts[i]
		s.alerts[a.ID] = &a
	}
	return s
}

func (s *memStore) ActiveAlerts(context.Context) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Alert
	for id := int64(1); id <= int64(len(s.alerts)); id++ {
		if a, ok := s.alerts[id]; ok && a.Active {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) Begin(context.Context) (Tx, error) {
	return &memTx{store: s}, nil
}

func (s *memStore) alert(id int64) models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.alerts[id]
}

type memTx struct {
	store *memStore
	ops   []func()
	done  bool
}

func (t *memTx) TouchChecked(_ context.Context, id int64, at time.Time) error {
	t.ops = append(t.ops, func() {
		t.store.alerts[id].LastChecked = &at
	})
	return nil
}

func (t *memTx) SetLastNotified(_ context.Context, id int64, price decimal.Decimal) error {
	t.ops = append(t.ops, func() {
		t.store.alerts[id].LastNotifiedPrice = decimal.NewNullDecimal(price)
	})
	return nil
}

func (t *memTx) AddObservation(_ context.Context, obs *models.PriceObservation) error {
	if err := t.store.failOn[obs.AlertID]; err != nil {
		return err
	}
	o := *obs
	t.ops = append(t.ops, func() {
		t.store.observations = append(t.store.observations, o)
	})
	return nil
}

func (t *memTx) AddNotification(_ context.Context, rec *models.NotificationRecord) error {
	r := *rec
	t.ops = append(t.ops, func() {
		t.store.notifications = append(t.store.notifications, r)
	})
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("tx done")
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, op := range t.ops {
		op()
	}
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	t.ops = nil
	return nil
}

// fakeNotifier records payloads; ok decides the outcome of each send.
type fakeNotifier struct {
	ok   bool
	sent []notify.Payload
}

func (n *fakeNotifier) Send(_ context.Context, p notify.Payload) bool {
	n.sent = append(n.sent, p)
	return n.ok
}

// fakeScraper serves per-URL results or errors.
type fakeScraper struct {
	results map[string]models.ScrapeResult
	errs    map[string]error
	calls   []string
	// onScrape runs before each scrape returns.
	onScrape func(url string)
}

func (f *fakeScraper) Scrape(_ context.Context, _ scrapers.Profile, url string) (models.ScrapeResult, error) {
	f.calls = append(f.calls, url)
	if f.onScrape != nil {
		f.onScrape(url)
	}
	if err := f.errs[url]; err != nil {
		return models.ScrapeResult{}, err
	}
	return f.results[url], nil
}

func priced(p string) models.ScrapeResult {
	return models.ScrapeResult{
		Price:        decimal.NewNullDecimal(decimal.RequireFromString(p)),
		Availability: models.Available,
		RawData:      models.RawScrapeData{PriceText: "$" + p, Currency: "USD"},
	}
}

// warnRecorder keeps every warning the manager logs.
type warnRecorder struct {
	logger.Logger
	warns []recordedWarn
}

type recordedWarn struct {
	msg   string
	alert string
}

func newWarnRecorder() *warnRecorder {
	return &warnRecorder{Logger: logger.NewNop()}
}

func (r *warnRecorder) Warn(msg string, fields ...logger.Field) {
	w := recordedWarn{msg: msg}
	for _, f := range fields {
		if f.Key == "alert" {
			w.alert = f.String
		}
	}
	r.warns = append(r.warns, w)
}

func (r *warnRecorder) With(...logger.Field) logger.Logger { return r }
