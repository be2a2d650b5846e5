package analytics

import "time"

// RevenueTimestamp selects the instant an order's revenue is recognized:
// deliveredAt when set, otherwise the fallback (usually creation time).
func RevenueTimestamp(deliveredAt *time.Time, fallback time.Time) time.Time {
	if deliveredAt != nil && !deliveredAt.IsZero() {
		return deliveredAt.UTC()
	}
	return fallback.UTC()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
