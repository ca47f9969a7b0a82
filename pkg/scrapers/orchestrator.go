package scrapers

import (
	"context"
	"fmt"
	"time"

	"ticket-hunter/pkg/logger"
	"ticket-hunter/pkg/metrics"
	"ticket-hunter/pkg/models"
	"ticket-hunter/pkg/render"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds the attempts of one scrape. The delay starts at
// InitialDelay, doubles after every failed attempt and is clamped into
// [MinDelay, MaxDelay].
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MinDelay     time.Duration
	MaxDelay     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MinDelay:     2 * time.Second,
		MaxDelay:     10 * time.Second,
	}
}

type clampedExponential struct {
	policy RetryPolicy
	next   time.Duration
}

func (b *clampedExponential) Reset() {
	b.next = b.policy.InitialDelay
}

func (b *clampedExponential) NextBackOff() time.Duration {
	d := b.next
	b.next *= 2
	if d < b.policy.MinDelay {
		d = b.policy.MinDelay
	}
	if d > b.policy.MaxDelay {
		d = b.policy.MaxDelay
	}
	return d
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := &clampedExponential{policy: p}
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Orchestrator runs scrapes with a fresh session per attempt.
type Orchestrator struct {
	opener  render.Opener
	scraper *Scraper
	retry   RetryPolicy
	diag    *Diagnostics
	metrics *metrics.Metrics
	log     logger.Logger
}

func NewOrchestrator(
	opener render.Opener,
	scraper *Scraper,
	retry RetryPolicy,
	diag *Diagnostics,
	m *metrics.Metrics,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		opener:  opener,
		scraper: scraper,
		retry:   retry,
		diag:    diag,
		metrics: m,
		log:     log,
	}
}

// Scrape retries silently and returns the last attempt's error unchanged
// once attempts are exhausted, after capturing diagnostics of that attempt.
func (o *Orchestrator) Scrape(ctx context.Context, p Profile, url string) (models.ScrapeResult, error) {
	log := o.log.With(logger.String("source", p.Name), logger.String("url", url))

	// failed holds the session of the latest failed attempt so its page is
	// still there for diagnostics.
	var failed render.Session
	defer func() {
		if failed != nil {
			_ = failed.Close()
		}
	}()

	attempt := 0
	op := func() (models.ScrapeResult, error) {
		attempt++

		sess, res, err := o.attempt(ctx, p, url)
		if err != nil && sess == nil {
			// The engine did not start; another attempt will not help.
			// An earlier failed page is kept for diagnostics.
			return models.ScrapeResult{}, backoff.Permanent(err)
		}
		if failed != nil {
			_ = failed.Close()
			failed = nil
		}
		if err != nil {
			failed = sess
			return models.ScrapeResult{}, err
		}
		return res, nil
	}
	notify := func(err error, wait time.Duration) {
		log.Debug("Scrape attempt failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("backoff", wait),
			logger.Error(err),
		)
	}

	res, err := backoff.RetryNotifyWithData(op, o.retry.backOff(ctx), notify)
	if err != nil {
		log.Error("Scraping failed", logger.Int("attempts", attempt), logger.Error(err))
		if failed != nil && o.diag != nil {
			o.diag.Capture(failed)
		}
		return models.ScrapeResult{}, err
	}

	log.Info("Successfully scraped", logger.Int("attempts", attempt))
	return res, nil
}

// ScrapeOnce runs a single attempt without retries or diagnostics.
func (o *Orchestrator) ScrapeOnce(ctx context.Context, p Profile, url string) (models.ScrapeResult, error) {
	sess, res, err := o.attempt(ctx, p, url)
	if sess != nil {
		_ = sess.Close()
	}
	return res, err
}

// attempt returns the session still open when the scrape failed, and nil
// when it succeeded or the session could not be opened.
func (o *Orchestrator) attempt(ctx context.Context, p Profile, url string) (_ render.Session, _ models.ScrapeResult, err error) {
	start := time.Now()
	defer func() {
		o.metrics.ObserveScrape(p.Name, time.Since(start), err)
	}()

	sess, err := o.opener.Open(ctx)
	if err != nil {
		return nil, models.ScrapeResult{}, fmt.Errorf("open session: %w", err)
	}

	keep := false
	defer func() {
		if keep {
			return
		}
		if cerr := sess.Close(); cerr != nil {
			o.log.Debug("Closing session failed", logger.Error(cerr))
		}
	}()

	res, err := o.scraper.Scrape(sess, p, url)
	if err != nil {
		keep = true
		return sess, models.ScrapeResult{}, err
	}
	return nil, res, nil
}
