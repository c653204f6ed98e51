package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/arcanumbot/bot/arcanum"
	"github.com/m3rciful/arcanumbot/core/logger"
	"github.com/m3rciful/arcanumbot/core/metrics"
	"github.com/m3rciful/arcanumbot/core/telegram/state"
)

// ErrUnexpectedChoice is returned when a choice arrives in a state that takes none.
// No actions accompany it.
var ErrUnexpectedChoice = errors.New("dialogue: choice not expected in current state")

const component = "dialogue"

// Engine runs the dialogue state machine on top of a session store.
type Engine struct {
	store state.Store
	msgs  Messages
	locks state.KeyedMutex
}

// Option customises an Engine.
type Option func(*Engine)

// WithMessages replaces the default texts.
func WithMessages(m Messages) Option {
	return func(e *Engine) {
		e.msgs = m
	}
}

// NewEngine builds an Engine using store for session persistence.
func NewEngine(store state.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, state.ErrNilStore
	}
	e := &Engine{store: store, msgs: DefaultMessages()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Messages returns the texts used by the engine.
func (e *Engine) Messages() Messages {
	return e.msgs
}

// HandleText processes free-text input from userID.
func (e *Engine) HandleText(ctx context.Context, userID int64, text string) ([]Action, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	if strings.EqualFold(strings.TrimSpace(text), ResetCommand) {
		return e.reset(ctx, userID)
	}

	sess, err := e.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch sess.State {
	case StateAwaitName:
		if err := ValidateName(text); err != nil {
			e.rejected(ctx, userID, AttrName, err)
			return []Action{textAction(e.msgs.InvalidName)}, nil
		}
		sess.SetAttr(AttrName, text)
		if err := e.transition(ctx, userID, &sess, StateConfirmName); err != nil {
			return nil, err
		}
		return []Action{e.confirm(fmt.Sprintf(e.msgs.ConfirmName, text))}, nil

	case StateAwaitBirthdate:
		if err := ValidateBirthdate(text); err != nil {
			e.rejected(ctx, userID, AttrBirthdate, err)
			return []Action{textAction(e.msgs.InvalidBirthdate)}, nil
		}
		sess.SetAttr(AttrBirthdate, text)
		if err := e.transition(ctx, userID, &sess, StateConfirmBirthdate); err != nil {
			return nil, err
		}
		prompt := e.msgs.ConfirmBirthdateFemale
		if isMale(sess) {
			prompt = e.msgs.ConfirmBirthdateMale
		}
		return []Action{e.confirm(fmt.Sprintf(prompt, text))}, nil
	}

	return []Action{textAction(e.msgs.Unhandled)}, nil
}

// HandleChoice processes a button press carrying token from userID.
// In states that expect no choice it returns ErrUnexpectedChoice and no actions.
func (e *Engine) HandleChoice(ctx context.Context, userID int64, token string) ([]Action, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	sess, err := e.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	yes := token == TokenYes

	switch sess.State {
	case StateAwaitGender:
		sess.SetAttr(AttrGender, token)
		if err := e.transition(ctx, userID, &sess, StateAwaitName); err != nil {
			return nil, err
		}
		return []Action{textAction(e.msgs.AskName)}, nil

	case StateConfirmName:
		if !yes {
			if err := e.transition(ctx, userID, &sess, StateAwaitName); err != nil {
				return nil, err
			}
			return []Action{textAction(e.msgs.RetryName)}, nil
		}
		if err := e.transition(ctx, userID, &sess, StateAwaitBirthdate); err != nil {
			return nil, err
		}
		prompt := e.msgs.AskBirthdateFemale
		if isMale(sess) {
			prompt = e.msgs.AskBirthdateMale
		}
		return []Action{textAction(prompt)}, nil

	case StateConfirmBirthdate:
		if !yes {
			if err := e.transition(ctx, userID, &sess, StateAwaitBirthdate); err != nil {
				return nil, err
			}
			return []Action{textAction(e.msgs.RetryBirthdate)}, nil
		}
		actions := []Action{e.documentAction(ctx, userID, sess)}
		if err := e.transition(ctx, userID, &sess, StateAwaitMore); err != nil {
			return nil, err
		}
		return append(actions, e.confirm(e.msgs.AskMore)), nil

	case StateAwaitMore:
		if !yes {
			return []Action{textAction(e.msgs.Farewell)}, nil
		}
		actions := make([]Action, 0, len(e.msgs.MoreInfo))
		for _, part := range e.msgs.MoreInfo {
			actions = append(actions, Action{Kind: ActionText, Text: part, Markdown: true})
		}
		return actions, nil
	}

	logger.Debug(ctx, component, "choice.ignored",
		slog.String("status", "skip"),
		slog.Int64("user_id", userID),
		slog.String("state", string(sess.State)),
		slog.String("cb_key", token),
	)
	return nil, ErrUnexpectedChoice
}

func (e *Engine) reset(ctx context.Context, userID int64) ([]Action, error) {
	sess, err := e.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	sess.Attributes = map[string]string{}
	if err := e.transition(ctx, userID, &sess, StateAwaitGender); err != nil {
		return nil, err
	}
	return []Action{choiceAction(e.msgs.GenderPrompt,
		Choice{Label: e.msgs.MaleLabel, Token: TokenMale},
		Choice{Label: e.msgs.FemaleLabel, Token: TokenFemale},
	)}, nil
}

func (e *Engine) documentAction(ctx context.Context, userID int64, sess state.Session) Action {
	birthdate, _ := sess.Attr(AttrBirthdate)
	day, err := BirthDay(birthdate)
	if err != nil {
		logger.Warn(ctx, component, "arcanum.resolve",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return textAction(e.msgs.ProcessingFailed)
	}
	number, err := arcanum.Resolve(day)
	if errors.Is(err, arcanum.ErrInvalidDay) {
		// Day 00 has no arcanum; the candidate chain ends at the default document.
		logger.Warn(ctx, component, "arcanum.resolve",
			slog.String("status", "fallback"),
			slog.Int64("user_id", userID),
			slog.Int("day", day),
		)
		number = day
	}

	logger.Debug(ctx, component, "arcanum.resolve",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.Int("day", day),
		slog.Int("arcanum", number),
	)
	return Action{
		Kind: ActionDocument,
		Document: &DocumentRequest{
			Arcanum:     number,
			Candidates:  arcanum.Candidates(number, isMale(sess)),
			Caption:     fmt.Sprintf(e.msgs.DocumentCaption, number),
			MissingText: e.msgs.DocumentMissing,
		},
	}
}

func (e *Engine) confirm(text string) Action {
	return choiceAction(text,
		Choice{Label: e.msgs.YesLabel, Token: TokenYes},
		Choice{Label: e.msgs.NoLabel, Token: TokenNo},
	)
}

// load returns the user's session, creating a START session on first contact.
func (e *Engine) load(ctx context.Context, userID int64) (state.Session, error) {
	sess, ok, err := e.store.Get(ctx, userID)
	if err != nil {
		return state.Session{}, fmt.Errorf("dialogue: load session: %w", err)
	}
	if !ok || !isKnownState(sess.State) {
		sess = state.Session{State: StateStart, Attributes: map[string]string{}}
	}
	return sess, nil
}

func (e *Engine) transition(ctx context.Context, userID int64, sess *state.Session, to state.State) error {
	from := sess.State
	sess.State = to
	if err := e.store.Put(ctx, userID, *sess); err != nil {
		return fmt.Errorf("dialogue: save session: %w", err)
	}
	metrics.TransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	logger.Debug(ctx, component, "dialogue.transition",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
	return nil
}

func (e *Engine) rejected(ctx context.Context, userID int64, field string, err error) {
	metrics.ValidationFailuresTotal.WithLabelValues(field).Inc()
	logger.Debug(ctx, component, "input.rejected",
		slog.String("status", "skip"),
		slog.Int64("user_id", userID),
		slog.String("field", field),
		slog.String("err", err.Error()),
	)
}

func isMale(sess state.Session) bool {
	g, _ := sess.Attr(AttrGender)
	return g == TokenMale
}
