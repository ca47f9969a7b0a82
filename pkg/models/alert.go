package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Availability string

const (
	Available Availability = "available"
	SoldOut   Availability = "sold_out"
	Unknown   Availability = "unknown"
)

type TriggerReason string

const (
	ReasonNone      TriggerReason = ""
	ReasonFirstTime TriggerReason = "first_time"
	ReasonPriceDrop TriggerReason = "price_drop"
)

// Alert is a tracked listing. LastNotifiedPrice is only set once a
// notification for it was actually delivered.
type Alert struct {
	ID                int64               `json:"id"`
	Name              string              `json:"name"`
	Source            string              `json:"source"`
	URL               string              `json:"url"`
	TargetPrice       decimal.Decimal     `json:"target_price"`
	LastNotifiedPrice decimal.NullDecimal `json:"last_notified_price"`
	Active            bool                `json:"active"`
	LastChecked       *time.Time          `json:"last_checked,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

type PriceObservation struct {
	ID           int64           `json:"id"`
	AlertID      int64           `json:"alert_id"`
	Price        decimal.Decimal `json:"price"`
	Availability Availability    `json:"availability"`
	Timestamp    time.Time       `json:"timestamp"`
	RawData      RawScrapeData   `json:"raw_data"`
}

type NotificationRecord struct {
	ID            int64           `json:"id"`
	AlertID       int64           `json:"alert_id"`
	SentAt        time.Time       `json:"sent_at"`
	TriggerReason TriggerReason   `json:"trigger_reason"`
	Price         decimal.Decimal `json:"price"`
}

// RawScrapeData is kept for debugging only; nothing decides on it.
type RawScrapeData struct {
	URL            string   `json:"url"`
	PageTitle      string   `json:"page_title"`
	PriceText      string   `json:"price_text,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	AllPricesFound []string `json:"all_prices_found,omitempty"`
	Error          string   `json:"error,omitempty"`
}

type ScrapeResult struct {
	Price        decimal.NullDecimal `json:"price"`
	Availability Availability        `json:"availability"`
	RawData      RawScrapeData       `json:"raw_data"`
}
