package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/mymmrac/telego"
)

// DefaultPollTimeout is the long-poll timeout in seconds.
const DefaultPollTimeout = 30

// UpdateSource is the long-polling side of *telego.Bot.
type UpdateSource interface {
	UpdatesViaLongPolling(ctx context.Context, params *telego.GetUpdatesParams, options ...telego.LongPollingOption) (<-chan telego.Update, error)
}

// Run registers the command menu and serves updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context, src UpdateSource, pollTimeout int) error {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	if err := b.msg.SetCommands(ctx, b.commands); err != nil {
		b.log.Warnf("registering command menu: %v", err)
	}

	updates, err := src.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{Timeout: pollTimeout})
	if err != nil {
		return fmt.Errorf("starting long polling: %w", err)
	}
	b.log.Infof("polling for updates")
	return b.Serve(ctx, updates)
}

// Serve handles updates until the channel closes or ctx is done, then
// waits for handlers that are still running.
func (b *Bot) Serve(ctx context.Context, updates <-chan telego.Update) error {
	defer b.inflight.Wait()
	for {
		select {
		case <-ctx.Done():
			b.log.Infof("shutting down, waiting for running handlers")
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			b.Dispatch(ctx, u)
		}
	}
}

// Dispatch starts the handler for u on its own goroutine. Handlers outlive
// ctx cancellation so a shutdown never cuts a reply short.
func (b *Bot) Dispatch(ctx context.Context, u telego.Update) {
	hctx := context.WithoutCancel(ctx)
	switch {
	case u.Message != nil:
		msg := messageFromTelego(u.Message)
		b.spawn(u.UpdateID, "message", func() error { return b.HandleMessage(hctx, msg) })
	case u.CallbackQuery != nil:
		cb := callbackFromTelego(u.CallbackQuery)
		b.spawn(u.UpdateID, "callback", func() error { return b.HandleCallback(hctx, cb) })
	default:
		b.log.Debugf("update %d: nothing to handle", u.UpdateID)
	}
}

func (b *Bot) spawn(updateID int, kind string, fn func() error) {
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				b.log.Errorf("update %d: %s handler panicked: %v\n%s", updateID, kind, r, debug.Stack())
			}
		}()

		start := time.Now()
		if err := fn(); err != nil {
			b.log.Errorf("update %d: %s handler: %v", updateID, kind, err)
			return
		}
		b.log.Debugf("update %d: %s handled in %s", updateID, kind, time.Since(start).Round(time.Millisecond))
	}()
}

// Wait blocks until every dispatched handler has returned.
func (b *Bot) Wait() { b.inflight.Wait() }
