// Package logsink delivers notifications to the structured log. It is the
// adapter used when no chat transport is configured.
package logsink

import (
	"context"

	kit "fridge/internal/transport"
	logx "fridge/pkg/logx"
)

type Adapter struct {
	log logx.Logger
}

var _ kit.Adapter = (*Adapter)(nil)

func New(log logx.Logger) *Adapter {
	return &Adapter{log: log.With(logx.String("comp", "notify.log"))}
}

func (a *Adapter) Name() string                { return "log" }
func (a *Adapter) Start(context.Context) error { return nil }
func (a *Adapter) Stop(context.Context) error  { return nil }

func (a *Adapter) SendText(ctx context.Context, to kit.Target, text string, _ *kit.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.log.Info("notification", logx.Int64("chat_id", to.ChatID), logx.String("text", text))
	return nil
}
