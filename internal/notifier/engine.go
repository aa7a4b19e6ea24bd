package notifier

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"pricewatch/internal/models"
)

// furtherDropThreshold is the fraction the price must fall below the last
// notified price before a same-day "further drop" alert fires.
const furtherDropThreshold = 0.01

// Engine decides whether a freshly scanned product warrants an alert and
// what notification-tracking fields to persist. "Today" is calendar-day
// equality in one fixed location, never a rolling 24h window.
type Engine struct {
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
}

func NewEngine(n Notifier, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{notifier: n, loc: loc, now: time.Now}
}

// Evaluate applies the decision table to a product before (prev) and after
// (updated) a successful scan. The returned product carries the
// notification fields to persist; sent reports whether an alert went out.
// On dispatch failure the notified fields are left untouched so the same
// trigger condition re-fires on a later scan.
func (e *Engine) Evaluate(ctx context.Context, prev, updated models.Product) (result models.Product, sent bool) {
	result = updated

	if updated.Name == "" || updated.CurrentPrice <= 0 || updated.DesiredPrice <= 0 {
		return result, false
	}

	if !updated.IsBelow {
		result.LastNotifiedPrice = 0
		result.LastNotifiedDate = time.Time{}
		return result, false
	}

	now := e.now()
	priceUnchanged := updated.CurrentPrice == prev.CurrentPrice
	notifiedToday := !prev.LastNotifiedDate.IsZero() && e.sameDay(prev.LastNotifiedDate, now)

	if priceUnchanged && notifiedToday {
		// Already alerted at this price today.
		return result, false
	}

	if priceUnchanged {
		return e.dispatch(ctx, result, now, e.reminderMessage(updated))
	}

	neverNotified := prev.LastNotifiedDate.IsZero()
	if neverNotified || !notifiedToday {
		return e.dispatch(ctx, result, now, e.alertMessage(updated))
	}

	// Notified today at a different price.
	if prev.LastNotifiedPrice > 0 && prev.LastNotifiedPrice-updated.CurrentPrice >= furtherDropThreshold*prev.LastNotifiedPrice {
		return e.dispatch(ctx, result, now, e.furtherDropMessage(updated, prev.LastNotifiedPrice))
	}

	// Price rose but stays below target; keep today's notified fields.
	return result, false
}

func (e *Engine) dispatch(ctx context.Context, product models.Product, now time.Time, message string) (models.Product, bool) {
	if !e.notifier.Send(ctx, message) {
		return product, false
	}
	product.LastNotifiedPrice = product.CurrentPrice
	product.LastNotifiedDate = now
	return product, true
}

func (e *Engine) sameDay(a, b time.Time) bool {
	ya, ma, da := a.In(e.loc).Date()
	yb, mb, db := b.In(e.loc).Date()
	return ya == yb && ma == mb && da == db
}

func (e *Engine) alertMessage(p models.Product) string {
	return fmt.Sprintf("Price alert: %s is ₹%s, at or below your target of ₹%s.\n%s",
		p.Name, fmtPrice(p.CurrentPrice), fmtPrice(p.DesiredPrice), p.URL)
}

func (e *Engine) reminderMessage(p models.Product) string {
	return fmt.Sprintf("Still below target: %s remains ₹%s (target ₹%s).\n%s",
		p.Name, fmtPrice(p.CurrentPrice), fmtPrice(p.DesiredPrice), p.URL)
}

func (e *Engine) furtherDropMessage(p models.Product, lastNotified float64) string {
	return fmt.Sprintf("Further drop: %s fell from ₹%s to ₹%s (target ₹%s).\n%s",
		p.Name, fmtPrice(lastNotified), fmtPrice(p.CurrentPrice), fmtPrice(p.DesiredPrice), p.URL)
}

func fmtPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
