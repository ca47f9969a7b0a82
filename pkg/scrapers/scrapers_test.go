package scrapers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"ticket-hunter/pkg/extract"
	"ticket-hunter/pkg/logger"
	"ticket-hunter/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MinDelay:     time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func newTestOrchestrator(t *testing.T, opener *fakeOpener) (*Orchestrator, string) {
	t.Helper()
	dir := t.TempDir()
	log := logger.NewNop()
	o := NewOrchestrator(
		opener,
		NewScraper(time.Second, extract.FirstMatch, log),
		fastRetry(),
		NewDiagnostics(dir, log),
		nil,
		log,
	)
	return o, dir
}

func TestLookup(t *testing.T) {
	p, err := Lookup(" StubHub ")
	require.NoError(t, err)
	assert.Equal(t, "StubHub", p.Name)
	assert.Equal(t, "800", p.Scroll)

	v, err := Lookup("viagogo")
	require.NoError(t, err)
	assert.Equal(t, []string{"USD", "GBP", "EUR"}, v.Currencies)

	_, err = Lookup("seatgeek")
	assert.ErrorIs(t, err, ErrUnknownSource)

	assert.Equal(t, []string{"stubhub", "ticketmaster", "viagogo"}, Sources())
}

func TestScraper_Scrape(t *testing.T) {
	p, _ := Lookup("ticketmaster")
	sess := &fakeSession{
		text:      "Floor seats £70.00 ... Upper $1,250.00 or $99.00",
		title:     "Lakers Tickets",
		scrollErr: errors.New("scroll blocked"),
	}

	res, err := NewScraper(time.Second, "", logger.NewNop()).Scrape(sess, p, "https://example.test/e/1")
	require.NoError(t, err)

	require.True(t, res.Price.Valid)
	assert.True(t, res.Price.Decimal.Equal(decimal.RequireFromString("1250")))
	assert.Equal(t, models.Available, res.Availability)
	assert.Equal(t, models.RawScrapeData{
		URL:            "https://example.test/e/1",
		PageTitle:      "Lakers Tickets",
		PriceText:      "$1,250.00",
		Currency:       "USD",
		AllPricesFound: []string{"$1,250.00", "$99.00"},
	}, res.RawData)

	assert.Equal(t, []time.Duration{15 * time.Second}, sess.settled)
	assert.Equal(t, []string{"document.body.scrollHeight"}, sess.scrolled)
}

func TestScraper_NoPriceIsNotAnError(t *testing.T) {
	p, _ := Lookup("stubhub")
	sess := &fakeSession{text: "Something went wrong", title: "Oops"}

	res, err := NewScraper(time.Second, "", logger.NewNop()).Scrape(sess, p, "u")
	require.NoError(t, err)
	assert.False(t, res.Price.Valid)
	assert.Equal(t, models.Unknown, res.Availability)
	assert.Empty(t, res.RawData.AllPricesFound)
}

func TestScraper_SkipsScrollWhenProfileHasNone(t *testing.T) {
	p := Profile{Name: "Plain", Currencies: []string{"EUR"}}
	sess := &fakeSession{text: "€10.00"}

	_, err := NewScraper(time.Second, "", logger.NewNop()).Scrape(sess, p, "u")
	require.NoError(t, err)
	assert.Empty(t, sess.scrolled)
}

func TestOrchestrator_RetriesThenSucceeds(t *testing.T) {
	opener := &fakeOpener{next: func(attempt int) *fakeSession {
		if attempt < 3 {
			return &fakeSession{navigateErr: errNavigation}
		}
		return &fakeSession{text: "$80.00"}
	}}
	o, dir := newTestOrchestrator(t, opener)
	p, _ := Lookup("stubhub")

	res, err := o.Scrape(context.Background(), p, "u")
	require.NoError(t, err)
	assert.True(t, res.Price.Decimal.Equal(decimal.NewFromInt(80)))
	assert.Len(t, opener.sessions, 3)
	assert.True(t, opener.allClosed())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no diagnostics on success")
}

func TestOrchestrator_ExhaustedRetries(t *testing.T) {
	errs := make([]error, 3)
	opener := &fakeOpener{next: func(attempt int) *fakeSession {
		errs[attempt-1] = fmt.Errorf("timeout on attempt %d", attempt)
		return &fakeSession{navigateErr: errs[attempt-1], text: "page"}
	}}
	o, dir := newTestOrchestrator(t, opener)
	fixed := time.Date(2026, 1, 9, 19, 30, 5, 0, time.UTC)
	o.diag.now = func() time.Time { return fixed }
	p, _ := Lookup("viagogo")

	_, err := o.Scrape(context.Background(), p, "u")

	require.Error(t, err)
	assert.True(t, err == errs[2], "final error must be returned unchanged, got %v", err)
	assert.Len(t, opener.sessions, 3)
	assert.True(t, opener.allClosed())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"page_20260109_193005.html",
		"screenshot_20260109_193005.png",
	}, names)
}

func TestOrchestrator_OpenFailureIsNotRetried(t *testing.T) {
	openErr := errors.New("chrome not found")
	opener := &fakeOpener{openErr: openErr}
	o, dir := newTestOrchestrator(t, opener)
	p, _ := Lookup("stubhub")

	_, err := o.Scrape(context.Background(), p, "u")
	assert.ErrorIs(t, err, openErr)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestOrchestrator_OpenFailureAfterFailedAttemptKeepsDiagnostics(t *testing.T) {
	openErr := errors.New("browser crashed")
	opener := &fakeOpener{
		next:        func(int) *fakeSession { return &fakeSession{navigateErr: errNavigation, text: "page"} },
		openErr:     openErr,
		openFailsAt: 2,
	}
	o, dir := newTestOrchestrator(t, opener)
	p, _ := Lookup("stubhub")

	_, err := o.Scrape(context.Background(), p, "u")
	assert.ErrorIs(t, err, openErr)
	assert.Len(t, opener.sessions, 1)
	assert.True(t, opener.allClosed())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "the first attempt's page is captured")
}

func TestOrchestrator_ScrapeOnce(t *testing.T) {
	opener := &fakeOpener{next: func(int) *fakeSession {
		return &fakeSession{navigateErr: errNavigation}
	}}
	o, _ := newTestOrchestrator(t, opener)
	p, _ := Lookup("stubhub")

	_, err := o.ScrapeOnce(context.Background(), p, "u")
	assert.ErrorIs(t, err, errNavigation)
	assert.Len(t, opener.sessions, 1)
	assert.True(t, opener.allClosed())
}

func TestRetryPolicy_Delays(t *testing.T) {
	b := &clampedExponential{policy: DefaultRetryPolicy()}
	b.Reset()

	var got []time.Duration
	for i := 0; i < 5; i++ {
		got = append(got, b.NextBackOff())
	}
	assert.Equal(t, []time.Duration{
		2 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
	}, got)
}

func TestDiagnostics_SwallowsFailures(t *testing.T) {
	d := NewDiagnostics(t.TempDir(), logger.NewNop())
	written := d.Capture(&brokenSession{})
	assert.Empty(t, written)
}

type brokenSession struct{ fakeSession }

func (*brokenSession) Screenshot(string) error { return errors.New("no display") }

func (*brokenSession) DumpMarkup(string) error { return errors.New("detached") }
