package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/arcanumbot/core/logger"
	"github.com/m3rciful/arcanumbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
// With no dispatcher, helpers send synchronously.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

// CurrentDispatcher returns the dispatcher set by SetDispatcher.
func CurrentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

// chatKey picks the shard key so one chat's messages stay ordered.
func chatKey(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if user := c.Sender(); user != nil {
		return user.ID
	}
	return 0
}

// sendAsync runs the call through the dispatcher; done, if set, receives the final outcome once.
func sendAsync(c tele.Context, action, endpoint string, run func() error, done func(error)) error {
	finish := func(err error) error {
		if done != nil {
			done(err)
		}
		return err
	}
	disp := CurrentDispatcher()
	if disp == nil {
		return finish(run())
	}

	ctx := BuildContext(c)
	if err := disp.EnqueueNotify(ctx, chatKey(c), action, endpoint, run, done); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return finish(run())
		}
		return err
	}
	return nil
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, "send.text", "sendMessage", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	}, nil)
}

// SendMD sends a message with Markdown parse mode and optional reply markup.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return SendText(c, text, opts)
}

// SendMarkup sends plain text with an attached keyboard.
func SendMarkup(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return SendText(c, text, &tele.SendOptions{ReplyMarkup: markup})
}

// SendDocument uploads doc and calls onDone once with the final outcome, after
// any retries. Telebot fills doc.FileID after a successful upload, so onDone
// receives the id to reuse.
func SendDocument(c tele.Context, doc *tele.Document, onDone func(fileID string, err error)) error {
	if doc == nil {
		return errors.New("send document: nil document")
	}
	var done func(error)
	if onDone != nil {
		done = func(err error) { onDone(doc.FileID, err) }
	}
	return sendAsync(c, "send.document", "sendDocument", func() error {
		return c.Send(doc)
	}, done)
}
