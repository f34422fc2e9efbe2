// Package location answers "where is the user right now" for the nearby runner.
package location

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"fridge/internal/fridge"
)

// Provider returns the current position. ok is false when no fix is known.
type Provider interface {
	Current(ctx context.Context) (p fridge.Point, ok bool, err error)
}

// Static always reports the same point.
type Static struct {
	Point fridge.Point
}

func (s Static) Current(context.Context) (fridge.Point, bool, error) {
	return s.Point, true, nil
}

// None never has a fix.
type None struct{}

func (None) Current(context.Context) (fridge.Point, bool, error) {
	return fridge.Point{}, false, nil
}

// File reads the latest "lat,lon" line written by an external tracker.
// A missing or empty file means no fix.
type File struct {
	Path string
}

func (f File) Current(context.Context) (fridge.Point, bool, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return fridge.Point{}, false, nil
	}
	if err != nil {
		return fridge.Point{}, false, err
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return fridge.Point{}, false, nil
	}
	p, err := ParsePoint(last)
	if err != nil {
		return fridge.Point{}, false, fmt.Errorf("%s: %w", f.Path, err)
	}
	return p, true, nil
}

// ParsePoint parses "lat,lon".
func ParsePoint(s string) (fridge.Point, error) {
	latS, lonS, ok := strings.Cut(s, ",")
	if !ok {
		return fridge.Point{}, fmt.Errorf("invalid point %q, expected lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	if err != nil {
		return fridge.Point{}, fmt.Errorf("invalid latitude in %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonS), 64)
	if err != nil {
		return fridge.Point{}, fmt.Errorf("invalid longitude in %q", s)
	}
	p := fridge.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return fridge.Point{}, fmt.Errorf("point %q out of range", s)
	}
	return p, nil
}
