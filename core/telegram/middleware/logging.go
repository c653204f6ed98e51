package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/arcanumbot/core/logger"
	"github.com/m3rciful/arcanumbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/arcanumbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// recent remembers update IDs already logged; the middleware runs both
// globally and on individual routes.
var recent = struct {
	sync.Mutex
	seen map[int]time.Time
}{seen: make(map[int]time.Time)}

const recentTTL = 10 * time.Second

func alreadyLogged(updateID int) bool {
	now := time.Now()
	recent.Lock()
	defer recent.Unlock()
	for id, ts := range recent.seen {
		if now.Sub(ts) > recentTTL {
			delete(recent.seen, id)
		}
	}
	if _, ok := recent.seen[updateID]; ok {
		return true
	}
	recent.seen[updateID] = now
	return false
}

// LoggerMiddleware sets the rid and update context, then logs one receipt line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		var chatID, userID int64
		chat, user := c.Chat(), c.Sender()
		if chat != nil {
			chatID = chat.ID
		}
		if user != nil {
			userID = user.ID
		}

		if _, ok := tghelpers.ContextFrom(c); !ok {
			rid := logger.BuildRID(upd.ID, chatID, userID)
			c.Set("rid", rid)
			c.Set("update_start", time.Now())
		}
		ctx := tghelpers.BuildContext(c)

		if !logger.ShouldSampleDebug() || alreadyLogged(upd.ID) {
			return next(c)
		}

		attrs := []slog.Attr{
			slog.String("status", "ok"),
			slog.String("kind", UpdateKind(upd)),
		}
		if chat != nil {
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		if user != nil {
			if user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			if user.LanguageCode != "" {
				attrs = append(attrs, slog.String("lang", user.LanguageCode))
			}
		}
		switch {
		case upd.Callback != nil:
			key, payload := callbacks.ParseCallbackData(upd.Callback)
			if key != "" {
				attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
			}
			if payload != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
			}
		case upd.Message != nil:
			if t := c.Text(); t != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
			}
		}
		logger.LogEvent(ctx, nil, slog.LevelDebug, "update.received", attrs...)
		return next(c)
	}
}
