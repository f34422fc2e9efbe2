package fridge

import (
	"fmt"
	"time"
)

// maxWeeks is the largest delta rendered in weeks; beyond it the delta is "a long time".
const maxWeeks = 10

// FormatDayDelta renders an absolute day count as "today", "N days",
// "N weeks" or "a long time".
func FormatDayDelta(days int) string {
	if days < 0 {
		days = -days
	}
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "1 day"
	case days < 7:
		return fmt.Sprintf("%d days", days)
	}
	weeks := days / 7
	switch {
	case weeks > maxWeeks:
		return "a long time"
	case weeks == 1:
		return "1 week"
	default:
		return fmt.Sprintf("%d weeks", weeks)
	}
}

// ExpirationMessage describes when the item expires relative to now.
// Items without an expiration date return "".
func (it Item) ExpirationMessage(now time.Time) string {
	days, ok := it.DaysUntilExpiry(now)
	if !ok {
		return ""
	}
	switch {
	case days == 0:
		return "Expires today"
	case days > 0:
		return "Expires in " + FormatDayDelta(days)
	default:
		return "Expired " + FormatDayDelta(days) + " ago"
	}
}
