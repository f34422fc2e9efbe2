// Package transport defines how formatted notifications leave the process.
package transport

import "context"

// Target addresses a chat (and optionally a forum topic) on the adapter's platform.
type Target struct {
	ChatID   int64
	ThreadID int // telegram forum topic thread id (0 if none)
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	Silent         bool
}

type Notification struct {
	Channel  string // adapter name, e.g. "telegram" or "log"
	Priority int    // 0 low.. 10 high
	Target   Target
	Text     string
	Options  *SendOptions
	Force    bool // skip the dedup window
}

type Adapter interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	SendText(ctx context.Context, to Target, text string, opt *SendOptions) error
}
