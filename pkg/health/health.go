// Package health runs one scrape per marketplace against a known-good page
// to tell whether the scrapers still understand the sites.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ticket-hunter/pkg/logger"
	"ticket-hunter/pkg/models"
	"ticket-hunter/pkg/scrapers"

	"github.com/shopspring/decimal"
)

const DefaultReportPath = "data/health_check_report.json"

// DefaultURLs are event pages expected to list tickets on every marketplace.
var DefaultURLs = map[string]string{
	"ticketmaster": "https://www.ticketmaster.com/los-angeles-lakers-vs-milwaukee-bucks-los-angeles-california-01-09-2026/event/2C00630818590ACB",
	"stubhub":      "https://www.stubhub.com/los-angeles-lakers-los-angeles-tickets-3-8-2026/event/159098523/",
	"viagogo":      "https://www.viagogo.com/Sports-Tickets/Basketball/NBA/Los-Angeles-Lakers-Tickets/E-159128540",
}

// Scraper runs a single unretried scrape.
type Scraper interface {
	ScrapeOnce(ctx context.Context, p scrapers.Profile, url string) (models.ScrapeResult, error)
}

type Result struct {
	Scraper             string              `json:"scraper"`
	URL                 string              `json:"url"`
	Success             bool                `json:"success"`
	PriceExtracted      bool                `json:"price_extracted"`
	Price               decimal.NullDecimal `json:"price"`
	Currency            string              `json:"currency,omitempty"`
	Availability        models.Availability `json:"availability,omitempty"`
	Error               string              `json:"error,omitempty"`
	Timestamp           time.Time           `json:"timestamp"`
	ResponseTimeSeconds float64             `json:"response_time_seconds"`
}

type Summary struct {
	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

type Report struct {
	Timestamp time.Time `json:"timestamp"`
	Summary   Summary   `json:"summary"`
	Results   []Result  `json:"results"`
}

func (r Report) AllPassed() bool {
	return r.Summary.Failed == 0
}

type Checker struct {
	scraper Scraper
	urls    map[string]string
	log     logger.Logger
	now     func() time.Time
}

// NewChecker uses DefaultURLs when urls is nil.
func NewChecker(s Scraper, urls map[string]string, log logger.Logger) *Checker {
	if urls == nil {
		urls = DefaultURLs
	}
	return &Checker{scraper: s, urls: urls, log: log, now: time.Now}
}

// Run checks every marketplace that has a test URL, in source order.
func (c *Checker) Run(ctx context.Context) Report {
	var results []Result
	for _, source := range scrapers.Sources() {
		url, ok := c.urls[source]
		if !ok {
			continue
		}
		p, err := scrapers.Lookup(source)
		if err != nil {
			continue
		}
		results = append(results, c.check(ctx, p, url))
	}
	return c.report(results)
}

func (c *Checker) check(ctx context.Context, p scrapers.Profile, url string) Result {
	log := c.log.With(logger.String("scraper", p.Name), logger.String("url", url))
	log.Info("Testing scraper")

	start := c.now()
	res, err := c.scraper.ScrapeOnce(ctx, p, url)
	r := Result{
		Scraper:             p.Name,
		URL:                 url,
		Timestamp:           start.UTC(),
		ResponseTimeSeconds: round2(c.now().Sub(start).Seconds()),
	}

	switch {
	case err != nil:
		r.Error = err.Error()
		log.Error("Health check failed", logger.Error(err))
	case !res.Price.Valid || !res.Price.Decimal.IsPositive():
		r.Price = res.Price
		r.Currency = res.RawData.Currency
		r.Availability = res.Availability
		r.Error = "Price is None or zero"
		log.Warn("Scraper returned no valid price", logger.String("availability", string(res.Availability)))
	default:
		r.Success = true
		r.PriceExtracted = true
		r.Price = res.Price
		r.Currency = res.RawData.Currency
		r.Availability = res.Availability
		log.Info("Health check passed",
			logger.String("price", res.Price.Decimal.String()),
			logger.String("currency", r.Currency),
			logger.String("availability", string(r.Availability)),
		)
	}
	return r
}

func (c *Checker) report(results []Result) Report {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Passed++
		}
	}
	s.Failed = s.Total - s.Passed
	if s.Total > 0 {
		s.SuccessRate = round2(float64(s.Passed) / float64(s.Total) * 100)
	}
	return Report{Timestamp: c.now().UTC(), Summary: s, Results: results}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Save writes the report as indented JSON, creating the directory.
func (r Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Print writes a human readable summary.
func (r Report) Print(w io.Writer) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintf(w, "\n%s\nSCRAPER HEALTH CHECK SUMMARY\n%s\n", rule, rule)

	for _, res := range r.Results {
		status := "FAIL"
		if res.Success {
			status = "PASS"
		}
		fmt.Fprintf(w, "\n%s - %s\n", status, res.Scraper)
		fmt.Fprintf(w, "  URL: %s\n", res.URL)
		fmt.Fprintf(w, "  Response time: %.2fs\n", res.ResponseTimeSeconds)
		if res.Success {
			price := res.Price.Decimal.String()
			if res.Currency != "" {
				price += " " + res.Currency
			}
			fmt.Fprintf(w, "  Price: %s\n", price)
			fmt.Fprintf(w, "  Availability: %s\n", res.Availability)
		} else {
			fmt.Fprintf(w, "  Error: %s\n", res.Error)
		}
	}

	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "Overall: %d/%d scrapers passed\n", r.Summary.Passed, r.Summary.Total)
	fmt.Fprintf(w, "%s\n\n", rule)
}
