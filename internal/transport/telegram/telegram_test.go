package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	kit "fridge/internal/transport"
	logx "fridge/pkg/logx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitText("short", 10))

	long := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	got := splitText(long, 10)
	assert.Equal(t, []string{strings.Repeat("a", 8), strings.Repeat("b", 8)}, got)

	chunks := splitText(strings.Repeat("x", 25), 10)
	assert.Len(t, chunks, 3)
}

// fakeBotAPI answers getMe and records sendMessage calls.
func fakeBotAPI(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu   sync.Mutex
		sent []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Fridge","username":"fridge_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			sent = append(sent, body["text"].(string))
			mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), sent...)
	}
}

func TestSendText(t *testing.T) {
	srv, sent := fakeBotAPI(t)
	a, err := New(Config{Token: "123:abc", URL: srv.URL}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	assert.Equal(t, "telegram", a.Name())

	require.NoError(t, a.SendText(context.Background(), kit.Target{ChatID: 42}, "milk expires today", nil))
	assert.Equal(t, []string{"milk expires today"}, sent())
	require.NoError(t, a.Stop(context.Background()))
}

func TestEmptyToken(t *testing.T) {
	_, err := New(Config{}, logx.Nop())
	assert.Error(t, err)
}
