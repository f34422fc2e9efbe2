package fridge

import "time"

// Midnight truncates t to the start of its day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ExpiringSoonLater returns the last day of the expiring-soon window: today plus days.
func ExpiringSoonLater(now time.Time, days int) time.Time {
	return Midnight(now).AddDate(0, 0, max(days, 0))
}

// expiryDay is the expiration date at midnight, in now's location.
func (it Item) expiryDay(now time.Time) (time.Time, bool) {
	if it.ExpireTime == nil {
		return time.Time{}, false
	}
	return Midnight(it.ExpireTime.In(now.Location())), true
}

// IsExpired reports whether the item's expiration day is before today, or
// today itself when countSameDayAsExpired is set.
func (it Item) IsExpired(now time.Time, countSameDayAsExpired bool) bool {
	exp, ok := it.expiryDay(now)
	if !ok {
		return false
	}
	today := Midnight(now)
	if exp.Before(today) {
		return true
	}
	return countSameDayAsExpired && exp.Equal(today)
}

// IsExpiringSoon reports whether a not-yet-expired item expires within
// [today, later], both ends inclusive.
func (it Item) IsExpiringSoon(now, later time.Time, countSameDayAsExpired bool) bool {
	if it.IsExpired(now, countSameDayAsExpired) {
		return false
	}
	exp, ok := it.expiryDay(now)
	if !ok {
		return false
	}
	today := Midnight(now)
	last := Midnight(later.In(now.Location()))
	return !exp.Before(today) && !exp.After(last)
}

// DaysUntilExpiry returns the calendar-day delta from today to the expiration day.
// Negative values are in the past.
func (it Item) DaysUntilExpiry(now time.Time) (int, bool) {
	exp, ok := it.expiryDay(now)
	if !ok {
		return 0, false
	}
	return daysBetween(Midnight(now), exp), true
}

// daysBetween counts calendar days, immune to DST-shortened days.
func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
