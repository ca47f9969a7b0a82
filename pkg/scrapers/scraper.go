package scrapers

import (
	"fmt"
	"time"

	"ticket-hunter/pkg/extract"
	"ticket-hunter/pkg/logger"
	"ticket-hunter/pkg/models"
	"ticket-hunter/pkg/render"
)

// Scraper turns an open session into a ScrapeResult.
type Scraper struct {
	NavigationTimeout time.Duration
	Policy            extract.Policy
	log               logger.Logger
}

func NewScraper(navTimeout time.Duration, policy extract.Policy, log logger.Logger) *Scraper {
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	if policy == "" {
		policy = extract.FirstMatch
	}
	return &Scraper{NavigationTimeout: navTimeout, Policy: policy, log: log}
}

// Scrape loads url in sess and extracts price and availability according to
// p. A page without any recognizable price is a valid result, not an error.
func (s *Scraper) Scrape(sess render.Session, p Profile, url string) (models.ScrapeResult, error) {
	log := s.log.With(logger.String("source", p.Name), logger.String("url", url))
	log.Info("Scraping")

	if err := sess.Navigate(url, s.NavigationTimeout); err != nil {
		return models.ScrapeResult{}, err
	}
	if err := sess.Settle(p.RenderWait); err != nil {
		return models.ScrapeResult{}, fmt.Errorf("settle: %w", err)
	}
	if p.Scroll != "" {
		if err := sess.Scroll(p.Scroll); err != nil {
			log.Debug("Could not scroll page", logger.Error(err))
		}
	}

	text, err := sess.ReadText()
	if err != nil {
		return models.ScrapeResult{}, err
	}

	ex := extract.ExtractPriceWithPolicy(text, p.Currencies, s.Policy)
	availability := extract.ClassifyAvailability(text, ex.Price, p.SoldOutKeywords)

	title, err := sess.Title()
	if err != nil {
		log.Debug("Could not read page title", logger.Error(err))
	}

	if ex.Price.Valid {
		log.Info("Found price",
			logger.String("price", ex.PriceText),
			logger.String("currency", ex.Currency),
			logger.Int("prices_on_page", len(ex.Matches)),
			logger.String("availability", string(availability)),
		)
	} else {
		log.Warn("No prices found in page text", logger.String("availability", string(availability)))
	}

	return models.ScrapeResult{
		Price:        ex.Price,
		Availability: availability,
		RawData: models.RawScrapeData{
			URL:            url,
			PageTitle:      title,
			PriceText:      ex.PriceText,
			Currency:       ex.Currency,
			AllPricesFound: ex.Matches,
		},
	}, nil
}
