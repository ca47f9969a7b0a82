// Package notify decides when a price is worth an alert and delivers it.
package notify

import (
	"ticket-hunter/pkg/models"

	"github.com/shopspring/decimal"
)

// Decide fires once the price first goes below target and again only when
// it drops strictly below the last notified price. It has no side effects;
// callers record lastNotified only after a send succeeded.
func Decide(target decimal.Decimal, lastNotified decimal.NullDecimal, current decimal.Decimal) (bool, models.TriggerReason) {
	if current.GreaterThanOrEqual(target) {
		return false, models.ReasonNone
	}
	if !lastNotified.Valid {
		return true, models.ReasonFirstTime
	}
	if current.LessThan(lastNotified.Decimal) {
		return true, models.ReasonPriceDrop
	}
	return false, models.ReasonNone
}
