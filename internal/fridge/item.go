package fridge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotReal is returned by accessors that are only valid on persisted items.
var ErrNotReal = errors.New("fridge: placeholder item")

// Presence says whether an item is on hand or still has to be bought.
type Presence string

const (
	Have Presence = "HAVE"
	Need Presence = "NEED"
)

func ParsePresence(s string) (Presence, error) {
	switch p := Presence(strings.ToUpper(strings.TrimSpace(s))); p {
	case Have, Need:
		return p, nil
	default:
		return "", fmt.Errorf("invalid presence %q (want HAVE or NEED)", s)
	}
}

// Item is a single named, counted good.
type Item struct {
	ID           string
	EntryID      string
	Name         string
	Count        int
	CreatedTime  time.Time
	PurchaseTime *time.Time
	ExpireTime   *time.Time
	Presence     Presence
	CategoryID   *string

	consumptionDate *time.Time
	spoiledDate     *time.Time
	real            bool
}

// NewItem creates a real item with a fresh id. Count starts at 1.
func NewItem(entryID, name string, presence Presence, now time.Time) Item {
	return Item{
		ID:          uuid.NewString(),
		EntryID:     entryID,
		Name:        strings.TrimSpace(name),
		Count:       1,
		CreatedTime: now,
		Presence:    presence,
		real:        true,
	}
}

// PlaceholderItem is an unsaved item used while editing.
func PlaceholderItem(entryID string, now time.Time) Item {
	return Item{ID: uuid.NewString(), EntryID: entryID, Count: 1, CreatedTime: now, Presence: Need}
}

// RestoreItem rebuilds a persisted item, including its archive dates.
func RestoreItem(it Item, consumed, spoiled *time.Time) Item {
	it.consumptionDate = copyTime(consumed)
	it.spoiledDate = copyTime(spoiled)
	it.real = true
	return it
}

func (it Item) IsReal() bool { return it.real }

func (it Item) ConsumptionDate() (*time.Time, error) {
	if !it.real {
		return nil, ErrNotReal
	}
	return copyTime(it.consumptionDate), nil
}

func (it Item) SpoiledDate() (*time.Time, error) {
	if !it.real {
		return nil, ErrNotReal
	}
	return copyTime(it.spoiledDate), nil
}

func (it Item) IsConsumed() bool { return it.real && it.consumptionDate != nil }
func (it Item) IsSpoiled() bool  { return it.real && it.spoiledDate != nil }

// IsArchived reports whether a real item was consumed or spoiled.
func (it Item) IsArchived() bool { return it.IsConsumed() || it.IsSpoiled() }

func (it Item) WithName(name string) Item {
	it.Name = strings.TrimSpace(name)
	return it
}

func (it Item) WithCount(n int) Item {
	it.Count = max(n, 1)
	return it
}

func (it Item) WithPresence(p Presence) Item {
	it.Presence = p
	return it
}

func (it Item) WithCategory(id string) Item {
	if id == "" {
		it.CategoryID = nil
		return it
	}
	it.CategoryID = &id
	return it
}

func (it Item) WithPurchaseTime(t time.Time) Item {
	it.PurchaseTime = &t
	return it
}

func (it Item) InvalidatePurchaseTime() Item {
	it.PurchaseTime = nil
	return it
}

func (it Item) WithExpireTime(t time.Time) Item {
	it.ExpireTime = &t
	return it
}

func (it Item) InvalidateExpireTime() Item {
	it.ExpireTime = nil
	return it
}

// MakeReal marks a placeholder as persisted.
func (it Item) MakeReal() Item {
	it.real = true
	return it
}

func (it Item) Consume(at time.Time) (Item, error) {
	if !it.real {
		return it, ErrNotReal
	}
	it.consumptionDate = &at
	return it, nil
}

func (it Item) Spoil(at time.Time) (Item, error) {
	if !it.real {
		return it, ErrNotReal
	}
	it.spoiledDate = &at
	return it, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
