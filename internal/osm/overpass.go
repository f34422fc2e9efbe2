// Package osm finds supermarkets near a point through the OpenStreetMap Overpass API.
// Shop nodes become stores; shop outlines (ways) become zones.
package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fridge/internal/fridge"
	logx "fridge/pkg/logx"

	"golang.org/x/time/rate"
)

const DefaultURL = "https://overpass-api.de/api/interpreter"

type Config struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

type Client struct {
	url     string
	ua      string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "fridge/1 (+overpass nearby search)"
	}
	return &Client{
		url:     cfg.URL,
		ua:      cfg.UserAgent,
		timeout: cfg.Timeout,
		http:    &http.Client{Timeout: cfg.Timeout + 5*time.Second},
		// Public Overpass instances ask for about one request per second.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		log:     log.With(logx.String("comp", "overpass")),
	}
}

// Result is one search's stores and zones.
type Result struct {
	Stores []fridge.NearbyStore
	Zones  []fridge.NearbyZone
}

// Query builds the Overpass QL for supermarkets within radius metres of p.
func Query(p fridge.Point, radius float64, timeout time.Duration) string {
	around := fmt.Sprintf("(around:%.0f,%.6f,%.6f)", radius, p.Lat, p.Lon)
	return fmt.Sprintf(`[out:json][timeout:%d];
(
  node["shop"="supermarket"]%s;
  way["shop"="supermarket"]%s;
);
out geom;`, int(timeout.Seconds()), around, around)
}

// Supermarkets searches around p.
func (c *Client) Supermarkets(ctx context.Context, p fridge.Point, radius float64) (Result, error) {
	if !p.Valid() {
		return Result{}, fmt.Errorf("invalid point %s", p)
	}
	if radius <= 0 {
		radius = fridge.GeofenceRadius
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	form := url.Values{"data": {Query(p, radius, c.timeout)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("overpass: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("overpass: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var raw response
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Result{}, fmt.Errorf("overpass: decode: %w", err)
	}
	res := raw.result()
	c.log.Debug("overpass search", logx.String("at", p.String()), logx.Float64("radius", radius),
		logx.Int("stores", len(res.Stores)), logx.Int("zones", len(res.Zones)), logx.Duration("took", time.Since(start)))
	return res, nil
}

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
	Tags     map[string]string `json:"tags"`
	Geometry []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"geometry"`
}

func (e element) name() string {
	if n := strings.TrimSpace(e.Tags["name"]); n != "" {
		return n
	}
	if b := strings.TrimSpace(e.Tags["brand"]); b != "" {
		return b
	}
	return "Supermarket"
}

func (r response) result() Result {
	var out Result
	for _, e := range r.Elements {
		switch e.Type {
		case "node":
			out.Stores = append(out.Stores, fridge.NearbyStore{
				ID:    fmt.Sprintf("osm:node/%d", e.ID),
				Name:  e.name(),
				Point: fridge.Point{Lat: e.Lat, Lon: e.Lon},
			})
		case "way":
			if len(e.Geometry) == 0 {
				continue
			}
			z := fridge.NearbyZone{ID: fmt.Sprintf("osm:way/%d", e.ID), Name: e.name()}
			for _, g := range e.Geometry {
				z.Points = append(z.Points, fridge.Point{Lat: g.Lat, Lon: g.Lon})
			}
			out.Zones = append(out.Zones, z)
		}
	}
	return out
}
