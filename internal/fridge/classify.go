package fridge

import "time"

// Buckets partitions an entry's live items by what the owner should be told.
type Buckets struct {
	Needed   []Item
	Expiring []Item
	Expired  []Item
}

func (b Buckets) Empty() bool {
	return len(b.Needed) == 0 && len(b.Expiring) == 0 && len(b.Expired) == 0
}

// Classify sorts non-archived items: NEED goes to Needed; HAVE goes to
// Expired when expired, else to Expiring when expiring soon.
func Classify(items []Item, now, later time.Time, countSameDayAsExpired bool) Buckets {
	var b Buckets
	for _, it := range items {
		if it.IsArchived() {
			continue
		}
		switch it.Presence {
		case Need:
			b.Needed = append(b.Needed, it)
		case Have:
			if it.IsExpired(now, countSameDayAsExpired) {
				b.Expired = append(b.Expired, it)
			} else if it.IsExpiringSoon(now, later, countSameDayAsExpired) {
				b.Expiring = append(b.Expiring, it)
			}
		}
	}
	return b
}

// HasLiveHave reports whether any non-archived item is on hand.
func HasLiveHave(items []Item) bool {
	for _, it := range items {
		if it.Presence == Have && !it.IsArchived() {
			return true
		}
	}
	return false
}

// NeededOf returns the non-archived NEED items.
func NeededOf(items []Item) []Item {
	var out []Item
	for _, it := range items {
		if it.Presence == Need && !it.IsArchived() {
			out = append(out, it)
		}
	}
	return out
}
