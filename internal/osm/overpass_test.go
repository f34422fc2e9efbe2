package osm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fridge/internal/fridge"
	logx "fridge/pkg/logx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "elements": [
    {"type":"node","id":11,"lat":52.5201,"lon":13.4051,"tags":{"shop":"supermarket","name":"Kiez Markt"}},
    {"type":"node","id":12,"lat":52.5210,"lon":13.4060,"tags":{"shop":"supermarket","brand":"Rewe"}},
    {"type":"way","id":21,"tags":{"shop":"supermarket"},"geometry":[{"lat":52.52,"lon":13.40},{"lat":52.521,"lon":13.40}]},
    {"type":"way","id":22,"tags":{"shop":"supermarket"}}
  ]
}`

func TestSupermarkets(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.PostForm.Get("data")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Timeout: 5 * time.Second}, logx.Nop())
	res, err := c.Supermarkets(context.Background(), fridge.Point{Lat: 52.52, Lon: 13.405}, 800)
	require.NoError(t, err)

	assert.Contains(t, gotQuery, `node["shop"="supermarket"](around:800,52.520000,13.405000)`)
	assert.Contains(t, gotQuery, "[timeout:5]")

	require.Len(t, res.Stores, 2)
	assert.Equal(t, "osm:node/11", res.Stores[0].ID)
	assert.Equal(t, "Kiez Markt", res.Stores[0].Name)
	assert.Equal(t, "Rewe", res.Stores[1].Name)

	require.Len(t, res.Zones, 1, "ways without geometry are skipped")
	assert.Equal(t, "Supermarket", res.Zones[0].Name)
	assert.Len(t, res.Zones[0].Points, 2)
}

func TestSupermarketsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL}, logx.Nop())
	_, err := c.Supermarkets(context.Background(), fridge.Point{Lat: 1, Lon: 1}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = c.Supermarkets(context.Background(), fridge.Point{Lat: 100, Lon: 1}, 0)
	assert.Error(t, err)
}
