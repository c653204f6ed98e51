// Package transport connects the dialogue engine to Telegram: inbound text and
// button presses become engine calls, returned actions become messages.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/arcanumbot/bot/dialogue"
	"github.com/m3rciful/arcanumbot/bot/documents"
	"github.com/m3rciful/arcanumbot/core/logger"
	"github.com/m3rciful/arcanumbot/core/metrics"
	tg "github.com/m3rciful/arcanumbot/core/telegram"
	"github.com/m3rciful/arcanumbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/arcanumbot/core/telegram/helpers"
	"github.com/m3rciful/arcanumbot/core/telegram/keyboard"
	"github.com/m3rciful/arcanumbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

const component = "transport"

var _ ui.FallbackProvider = (*Telegram)(nil)

// Engine is the dialogue surface the transport drives.
type Engine interface {
	HandleText(ctx context.Context, userID int64, text string) ([]dialogue.Action, error)
	HandleChoice(ctx context.Context, userID int64, token string) ([]dialogue.Action, error)
}

// Options configures a Telegram transport.
type Options struct {
	Engine    Engine
	Documents documents.Store
	// FileIDs caches uploaded documents; nil disables reuse.
	FileIDs  *documents.FileIDs
	Messages dialogue.Messages
}

// Telegram adapts the engine to telebot handlers.
type Telegram struct {
	engine  Engine
	docs    documents.Store
	fileIDs *documents.FileIDs
	msgs    dialogue.Messages
}

// New validates opts and returns a transport.
func New(opts Options) (*Telegram, error) {
	if opts.Engine == nil {
		return nil, errors.New("transport: nil engine")
	}
	if opts.Documents == nil {
		return nil, errors.New("transport: nil document store")
	}
	return &Telegram{
		engine:  opts.Engine,
		docs:    opts.Documents,
		fileIDs: opts.FileIDs,
		msgs:    opts.Messages,
	}, nil
}

// Register adds the reset command, the choice callbacks and the text fallback to reg.
func (t *Telegram) Register(reg *tg.Registry) error {
	err := reg.RegisterCommand(dialogue.ResetCommand, commands.Command{
		Handler:     t.OnReset,
		Description: "Начать заново",
	})
	if err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	for _, token := range dialogue.Tokens() {
		if err := reg.RegisterCallback(token, t.OnChoice(token)); err != nil {
			return fmt.Errorf("transport: %w", err)
		}
	}
	reg.SetTextFallback(t.OnText)
	reg.SetCallbackNotFound(t.UnknownCallback())
	return nil
}

// OnReset restarts the dialogue; deep-link payloads after /start are ignored.
func (t *Telegram) OnReset(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	actions, err := t.engine.HandleText(ctx, user.ID, dialogue.ResetCommand)
	return t.respond(ctx, c, actions, err)
}

// OnText feeds the message text to the engine.
func (t *Telegram) OnText(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	actions, err := t.engine.HandleText(ctx, user.ID, c.Text())
	return t.respond(ctx, c, actions, err)
}

// OnChoice returns the handler for the button carrying token.
func (t *Telegram) OnChoice(token string) tele.HandlerFunc {
	return func(c tele.Context) error {
		user := c.Sender()
		if user == nil {
			return nil
		}
		ctx := tghelpers.BuildContext(c)
		actions, err := t.engine.HandleChoice(ctx, user.ID, token)
		return t.respond(ctx, c, actions, err)
	}
}

func (t *Telegram) respond(ctx context.Context, c tele.Context, actions []dialogue.Action, err error) error {
	switch {
	case errors.Is(err, dialogue.ErrUnexpectedChoice):
		logger.Debug(ctx, component, "choice.unexpected", slog.String("status", "skip"))
		return nil
	case err != nil:
		logger.Error(ctx, component, "engine.fail", slog.String("err", err.Error()))
		if sendErr := tghelpers.SendText(c, t.msgs.InternalError); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}
	return t.Deliver(ctx, c, actions)
}

// Deliver sends actions to the chat of c in order.
func (t *Telegram) Deliver(ctx context.Context, c tele.Context, actions []dialogue.Action) error {
	var errs []error
	for _, a := range actions {
		if err := t.deliverOne(ctx, c, a); err != nil {
			logger.Warn(ctx, component, "action.fail",
				slog.String("action", a.Kind.String()),
				slog.String("err", err.Error()),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Telegram) deliverOne(ctx context.Context, c tele.Context, a dialogue.Action) error {
	switch a.Kind {
	case dialogue.ActionText:
		if a.Markdown {
			return tghelpers.SendMD(c, a.Text)
		}
		return tghelpers.SendText(c, a.Text)
	case dialogue.ActionChoice:
		return tghelpers.SendMarkup(c, a.Text, ChoiceMarkup(a.Choices))
	case dialogue.ActionDocument:
		return t.sendDocument(ctx, c, a.Document)
	}
	return fmt.Errorf("transport: unknown action kind %d", a.Kind)
}

// ChoiceMarkup renders choices as a single row of inline buttons keyed by token.
func ChoiceMarkup(choices []dialogue.Choice) *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(choices))
	for _, ch := range choices {
		buttons = append(buttons, keyboard.InlineBtn{Text: ch.Label, Unique: ch.Token})
	}
	return keyboard.InlineButtonsNPerRow(buttons, 0)
}

func (t *Telegram) sendDocument(ctx context.Context, c tele.Context, req *dialogue.DocumentRequest) error {
	if req == nil {
		return errors.New("transport: document action without request")
	}
	doc, err := documents.Resolve(ctx, t.docs, req.Candidates)
	if err != nil {
		result := "missing"
		if !errors.Is(err, documents.ErrNotFound) {
			result = "failed"
			logger.Error(ctx, component, "document.lookup", slog.String("err", err.Error()))
		}
		metrics.DocumentsTotal.WithLabelValues(result).Inc()
		return tghelpers.SendText(c, req.MissingText)
	}

	result := "exact"
	if len(req.Candidates) > 0 && doc.ID != req.Candidates[0] {
		result = "fallback"
	}
	metrics.DocumentsTotal.WithLabelValues(result).Inc()

	file := tele.FromDisk(doc.Path)
	cached := false
	if t.fileIDs != nil {
		if id, ok := t.fileIDs.Get(doc.Path); ok {
			file = tele.File{FileID: id}
			cached = true
		}
	}
	logger.Debug(ctx, component, "document.send",
		slog.String("doc", doc.ID),
		slog.Int("arcanum", req.Arcanum),
		slog.Bool("fallback", result == "fallback"),
		slog.Bool("cached", cached),
	)

	return tghelpers.SendDocument(c, &tele.Document{
		File:     file,
		FileName: doc.FileName,
		Caption:  req.Caption,
	}, func(fileID string, err error) {
		if err != nil {
			t.documentFailed(ctx, c, doc, cached, err)
			return
		}
		if t.fileIDs != nil {
			t.fileIDs.Set(doc.Path, fileID)
		}
	})
}

func (t *Telegram) documentFailed(ctx context.Context, c tele.Context, doc documents.Document, cached bool, err error) {
	metrics.DocumentsTotal.WithLabelValues("failed").Inc()
	logger.Warn(ctx, component, "document.upload",
		slog.String("status", "fail"),
		slog.String("doc", doc.ID),
		slog.Bool("cached", cached),
		slog.String("err", err.Error()),
	)
	if cached && t.fileIDs != nil {
		t.fileIDs.Forget(doc.Path)
	}
	if t.msgs.DocumentFailed == "" {
		return
	}
	if sendErr := tghelpers.SendText(c, t.msgs.DocumentFailed); sendErr != nil {
		logger.Warn(ctx, component, "document.apology", slog.String("err", sendErr.Error()))
	}
}

// UnknownText answers text no handler claimed.
func (t *Telegram) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, t.msgs.Unhandled)
	}
}

// UnknownDocument answers files sent by the user.
func (t *Telegram) UnknownDocument() tele.HandlerFunc {
	return t.UnknownText()
}

// UnknownCallback answers presses of buttons this bot no longer handles.
func (t *Telegram) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: t.msgs.Unhandled})
	}
}
