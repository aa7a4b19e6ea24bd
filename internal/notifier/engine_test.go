package notifier

import (
	"context"
	"strings"
	"testing"
	"time"

	"pricewatch/internal/models"
)

type fakeNotifier struct {
	messages []string
	fail     bool
}

func (f *fakeNotifier) Send(_ context.Context, message string) bool {
	if f.fail {
		return false
	}
	f.messages = append(f.messages, message)
	return true
}

func newTestEngine(n Notifier, now time.Time) *Engine {
	e := NewEngine(n, time.UTC)
	e.now = func() time.Time { return now }
	return e
}

func baseProduct() models.Product {
	return models.Product{
		ID:           "p1",
		Name:         "Slim Fit Jeans",
		URL:          "https://myntra.com/jeans/item/123/buy",
		Platform:     models.PlatformMyntra,
		DesiredPrice: 1000,
	}
}

var noon = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func TestEvaluate_FirstAlert(t *testing.T) {
	n := &fakeNotifier{}
	e := newTestEngine(n, noon)

	prev := baseProduct()
	updated := prev
	updated.CurrentPrice = 950
	updated.IsBelow = true

	result, sent := e.Evaluate(context.Background(), prev, updated)
	if !sent {
		t.Fatal("Expected a price alert on first drop below target")
	}
	if result.LastNotifiedPrice != 950 {
		t.Errorf("LastNotifiedPrice = %v, want 950", result.LastNotifiedPrice)
	}
	if !result.LastNotifiedDate.Equal(noon) {
		t.Errorf("LastNotifiedDate = %v, want %v", result.LastNotifiedDate, noon)
	}
	if len(n.messages) != 1 || !strings.HasPrefix(n.messages[0], "Price alert") {
		t.Errorf("Unexpected messages: %v", n.messages)
	}
}

func TestEvaluate_MissingFieldsNoNotification(t *testing.T) {
	n := &fakeNotifier{}
	e := newTestEngine(n, noon)

	prev := baseProduct()
	updated := prev
	updated.Name = ""
	updated.CurrentPrice = 950
	updated.IsBelow = true

	result, sent := e.Evaluate(context.Background(), prev, updated)
	if sent || len(n.messages) != 0 {
		t.Error("Expected no notification for product missing name")
	}
	if result.LastNotifiedPrice != prev.LastNotifiedPrice {
		t.Error("Notified fields must be unchanged")
	}
}

func TestEvaluate_AboveTargetResetsState(t *testing.T) {
	n := &fakeNotifier{}
	e := newTestEngine(n, noon)

	prev := baseProduct()
	prev.CurrentPrice = 950
	prev.LastNotifiedPrice = 950
	prev.LastNotifiedDate = noon.Add(-24 * time.Hour)

	updated := prev
	updated.CurrentPrice = 1200
	updated.IsBelow = false

	result, sent := e.Evaluate(context.Background(), prev, updated)
	if sent {
		t.Error("Expected no notification when price is above target")
	}
	if result.LastNotifiedPrice != 0 || !result.LastNotifiedDate.IsZero() {
		t.Error("Expected notified fields to be cleared when price leaves the target zone")
	}
}

func TestEvaluate_SameDaySamePriceSuppressed(t *testing.T) {
	n := &fakeNotifier{}
	e := newTestEngine(n, noon)

	prev := baseProduct()
	prev.CurrentPrice = 950
	prev.LastNotifiedPrice = 950
	prev.LastNotifiedDate = noon.Add(-2 * time.Hour) // earlier today

	updated := prev
	updated.IsBelow = true

	// Idempotent: two evaluations on the same day produce identical output.
	for i := 0; i < 2; i++ {
		result, sent := e.Evaluate(context.Background(), prev, updated)
		if sent {
			t.Fatalf("Run %d: expected suppression for unchanged price already notified today", i)
		}
		if result.LastNotifiedPrice != 950 || !result.LastNotifiedDate.Equal(prev.LastNotifiedDate) {
			t.Fatalf("Run %d: notified fields must be preserved", i)
		}
	}
	if len(n.messages) != 0 {
		t.Errorf("Expected no messages, got %v", n.messages)
	}
}

func TestEvaluate_DailyReminder(t *testing.T) {
	n := &fakeNotifier{}
	e := newTestEngine(n, noon)

	prev := baseProduct()
	prev.CurrentPrice = 950
	prev.LastNotifiedPrice = 950
	prev.LastNotifiedDate = noon.Add(-24 * time.Hour) // yesterday

	updated := prev
	updated.IsBelow = true

	result, sent := e.Evaluate(context.Background(), prev, updated)
	if !sent {
		t.Fatal("Expected a daily reminder for a price still below target")
	}
	if len(n.messages) != 1 || !strings.HasPrefix(n.messages[0], "Still below target") {
		t.Errorf("Unexpected messages: %v", n.messages)
	}
	if !result.LastNotifiedDate.Equal(noon) {
		t.Errorf("LastNotifiedDate should advance to today, got %v", result.LastNotifiedDate)
	}
}

func TestEvaluate_FurtherDropThreshold(t *testing.T) {
	tests := []struct {
		name     string
		newPrice float64
		wantSent bool
	}{
		{"Drop under one percent suppressed", 99.4, false},
		{"Two percent drop alerts", 98, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &fakeNotifier{}
			e := newTestEngine(n, noon)

			prev := baseProduct()
			prev.DesiredPrice = 100
			prev.CurrentPrice = 100
			prev.LastNotifiedPrice = 100
			prev.LastNotifiedDate = noon.Add(-time.Hour) // today

			updated := prev
			updated.CurrentPrice = tt.newPrice
			updated.IsBelow = true

			result, sent := e.Evaluate(context.Background(), prev, updated)
			if sent != tt.wantSent {
				t.Fatalf("sent = %v, want %v", sent, tt.wantSent)
			}
			if tt.wantSent {
				if !strings.HasPrefix(n.messages[0], "Further drop") {
					t.Errorf("Unexpected message: %q", n.messages[0])
				}
				if result.LastNotifiedPrice != tt.newPrice {
					t.Errorf("LastNotifiedPrice = %v, want %v", result.LastNotifiedPrice, tt.newPrice)
				}
			} else if result.LastNotifiedPrice != 100 {
				t.Errorf("Notified fields must be preserved on suppression, got %v", result.LastNotifiedPrice)
			}
		})
	}
}

func TestEvaluate_PriceRoseButBelowTarget(t *testing.T) {
	n := &fakeNotifier{}
	e := newTestEngine(n, noon)

	prev := baseProduct()
	prev.CurrentPrice = 900
	prev.LastNotifiedPrice = 900
	prev.LastNotifiedDate = noon.Add(-time.Hour) // today

	updated := prev
	updated.CurrentPrice = 980
	updated.IsBelow = true

	result, sent := e.Evaluate(context.Background(), prev, updated)
	if sent {
		t.Error("Expected no notification when price rose but stays below target")
	}
	if result.LastNotifiedPrice != 900 {
		t.Errorf("Notified fields must be left as-is, got %v", result.LastNotifiedPrice)
	}
}

func TestEvaluate_DispatchFailureLeavesFields(t *testing.T) {
	n := &fakeNotifier{fail: true}
	e := newTestEngine(n, noon)

	prev := baseProduct()
	updated := prev
	updated.CurrentPrice = 950
	updated.IsBelow = true

	result, sent := e.Evaluate(context.Background(), prev, updated)
	if sent {
		t.Error("sent must be false when dispatch fails")
	}
	if result.LastNotifiedPrice != 0 || !result.LastNotifiedDate.IsZero() {
		t.Error("Notified fields must stay unset after a failed dispatch so the alert re-fires")
	}
}

func TestEvaluate_TimezoneDayBoundary(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	n := &fakeNotifier{}
	e := NewEngine(n, loc)
	// 2024-06-10 20:00 UTC is already 2024-06-11 in IST, while the last
	// notification at 10:00 UTC the same UTC day was still 2024-06-10 IST.
	// Day equality must follow the configured zone, not UTC.
	e.now = func() time.Time { return time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC) }

	prev := baseProduct()
	prev.CurrentPrice = 950
	prev.LastNotifiedPrice = 950
	prev.LastNotifiedDate = time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

	updated := prev
	updated.IsBelow = true

	_, sent := e.Evaluate(context.Background(), prev, updated)
	if !sent {
		t.Error("Expected a daily reminder: notification dates fall on different IST days")
	}
}
