package transport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/arcanumbot/bot/dialogue"
	"github.com/m3rciful/arcanumbot/bot/documents"
	tg "github.com/m3rciful/arcanumbot/core/telegram"
	"github.com/m3rciful/arcanumbot/core/telegram/state"
)

type outgoing struct {
	what any
	opts []any
}

type fakeContext struct {
	tele.Context

	mu        sync.Mutex
	store     map[string]any
	userID    int64
	text      string
	docErr    error
	outbox    []outgoing
	responses []*tele.CallbackResponse
}

func newFakeContext(userID int64) *fakeContext {
	return &fakeContext{store: map[string]any{}, userID: userID}
}

func (f *fakeContext) Sender() *tele.User  { return &tele.User{ID: f.userID} }
func (f *fakeContext) Chat() *tele.Chat    { return &tele.Chat{ID: f.userID} }
func (f *fakeContext) Update() tele.Update { return tele.Update{ID: 1} }
func (f *fakeContext) Text() string        { return f.text }

func (f *fakeContext) Get(key string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store[key]
}

func (f *fakeContext) Set(key string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = v
}

func (f *fakeContext) Send(what any, opts ...any) error {
	if doc, ok := what.(*tele.Document); ok {
		if f.docErr != nil {
			return f.docErr
		}
		if doc.FileID == "" {
			doc.FileID = "tg-" + doc.FileName
		}
	}
	f.outbox = append(f.outbox, outgoing{what: what, opts: opts})
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	f.responses = append(f.responses, resp...)
	return nil
}

// drain returns and clears everything sent so far.
func (f *fakeContext) drain() []outgoing {
	out := f.outbox
	f.outbox = nil
	return out
}

func markupOf(t *testing.T, o outgoing) *tele.ReplyMarkup {
	t.Helper()
	require.NotEmpty(t, o.opts)
	opts, ok := o.opts[0].(*tele.SendOptions)
	require.True(t, ok)
	require.NotNil(t, opts.ReplyMarkup)
	return opts.ReplyMarkup
}

type fixture struct {
	tr    *Telegram
	docs  string
	ids   *documents.FileIDs
	store state.Store
	msgs  dialogue.Messages
}

func newFixture(t *testing.T, files ...string) fixture {
	t.Helper()
	dir := t.TempDir()
	for _, name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o600))
	}
	docs, err := documents.NewFSStore(dir, "")
	require.NoError(t, err)
	store := state.NewMemoryStore()
	engine, err := dialogue.NewEngine(store)
	require.NoError(t, err)
	ids := &documents.FileIDs{}
	tr, err := New(Options{Engine: engine, Documents: docs, FileIDs: ids, Messages: engine.Messages()})
	require.NoError(t, err)
	return fixture{tr: tr, docs: dir, ids: ids, store: store, msgs: engine.Messages()}
}

func TestNewValidates(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
	_, err = New(Options{Engine: fakeEngine{}})
	assert.Error(t, err)
}

func TestFullDialogue(t *testing.T) {
	fx := newFixture(t, "arcanum_11.pdf", "default.pdf")
	c := newFakeContext(7)

	require.NoError(t, fx.tr.OnReset(c))
	out := c.drain()
	require.Len(t, out, 1)
	assert.Equal(t, fx.msgs.GenderPrompt, out[0].what)
	kb := markupOf(t, out[0]).InlineKeyboard
	require.Len(t, kb, 1)
	require.Len(t, kb[0], 2)
	assert.Equal(t, dialogue.TokenMale, kb[0][0].Unique)
	assert.Equal(t, dialogue.TokenFemale, kb[0][1].Unique)

	require.NoError(t, fx.tr.OnChoice(dialogue.TokenFemale)(c))
	out = c.drain()
	require.Len(t, out, 1)
	assert.Equal(t, fx.msgs.AskName, out[0].what)

	c.text = "Анна"
	require.NoError(t, fx.tr.OnText(c))
	out = c.drain()
	require.Len(t, out, 1)
	assert.Equal(t, "Твое имя: Анна?", out[0].what)
	assert.Len(t, markupOf(t, out[0]).InlineKeyboard[0], 2)

	require.NoError(t, fx.tr.OnChoice(dialogue.TokenYes)(c))
	out = c.drain()
	require.Len(t, out, 1)
	assert.Equal(t, fx.msgs.AskBirthdateFemale, out[0].what)

	c.text = "29.03.1990"
	require.NoError(t, fx.tr.OnText(c))
	out = c.drain()
	require.Len(t, out, 1)
	assert.Equal(t, "Ты родилась 29.03.1990?", out[0].what)

	require.NoError(t, fx.tr.OnChoice(dialogue.TokenYes)(c))
	out = c.drain()
	require.Len(t, out, 2)
	doc, ok := out[0].what.(*tele.Document)
	require.True(t, ok)
	assert.Equal(t, "arcanum_11.pdf", doc.FileName)
	assert.Equal(t, "Ваш аркан дня рождения: 11", doc.Caption)
	assert.Equal(t, filepath.Join(fx.docs, "arcanum_11.pdf"), doc.FileLocal)
	assert.Equal(t, fx.msgs.AskMore, out[1].what)

	id, ok := fx.ids.Get(filepath.Join(fx.docs, "arcanum_11.pdf"))
	require.True(t, ok)
	assert.Equal(t, "tg-arcanum_11.pdf", id)

	require.NoError(t, fx.tr.OnChoice(dialogue.TokenYes)(c))
	out = c.drain()
	require.Len(t, out, 2)
	for i, o := range out {
		assert.Equal(t, fx.msgs.MoreInfo[i], o.what)
		opts := o.opts[0].(*tele.SendOptions)
		assert.Equal(t, tele.ModeMarkdown, opts.ParseMode)
	}

	require.NoError(t, fx.tr.OnChoice(dialogue.TokenNo)(c))
	out = c.drain()
	require.Len(t, out, 1)
	assert.Equal(t, fx.msgs.Farewell, out[0].what)
}

func TestDocumentMissingAndCached(t *testing.T) {
	fx := newFixture(t, "m_arcanum_5.pdf")
	c := newFakeContext(9)
	ctx := context.Background()

	missing := dialogue.Action{Kind: dialogue.ActionDocument, Document: &dialogue.DocumentRequest{
		Arcanum:     3,
		Candidates:  []string{"m_arcanum_3", "arcanum_3", "default"},
		MissingText: fx.msgs.DocumentMissing,
	}}
	require.NoError(t, fx.tr.Deliver(ctx, c, []dialogue.Action{missing}))
	out := c.drain()
	require.Len(t, out, 1)
	assert.Equal(t, fx.msgs.DocumentMissing, out[0].what)

	found := dialogue.Action{Kind: dialogue.ActionDocument, Document: &dialogue.DocumentRequest{
		Arcanum:    5,
		Candidates: []string{"m_arcanum_5", "arcanum_5", "default"},
		Caption:    "caption",
	}}
	require.NoError(t, fx.tr.Deliver(ctx, c, []dialogue.Action{found}))
	require.NoError(t, fx.tr.Deliver(ctx, c, []dialogue.Action{found}))
	out = c.drain()
	require.Len(t, out, 2)
	first := out[0].what.(*tele.Document)
	second := out[1].what.(*tele.Document)
	assert.NotEmpty(t, first.FileLocal)
	assert.Empty(t, second.FileLocal)
	assert.Equal(t, "tg-m_arcanum_5.pdf", second.FileID)

	assert.Error(t, fx.tr.Deliver(ctx, c, []dialogue.Action{{Kind: dialogue.ActionDocument}}))
}

func TestDocumentUploadFailureApologises(t *testing.T) {
	fx := newFixture(t, "arcanum_7.pdf")
	c := newFakeContext(13)
	ctx := context.Background()
	path := filepath.Join(fx.docs, "arcanum_7.pdf")

	found := dialogue.Action{Kind: dialogue.ActionDocument, Document: &dialogue.DocumentRequest{
		Arcanum:    7,
		Candidates: []string{"f_arcanum_7", "arcanum_7", "default"},
		Caption:    "caption",
	}}

	c.docErr = errors.New("upload failed")
	assert.Error(t, fx.tr.Deliver(ctx, c, []dialogue.Action{found}))
	out := c.drain()
	require.Len(t, out, 1)
	assert.Equal(t, fx.msgs.DocumentFailed, out[0].what)
	_, ok := fx.ids.Get(path)
	assert.False(t, ok)

	fx.ids.Set(path, "stale-id")
	assert.Error(t, fx.tr.Deliver(ctx, c, []dialogue.Action{found}))
	_, ok = fx.ids.Get(path)
	assert.False(t, ok, "failed cached id is forgotten")
	assert.Equal(t, fx.msgs.DocumentFailed, c.drain()[0].what)

	c.docErr = nil
	require.NoError(t, fx.tr.Deliver(ctx, c, []dialogue.Action{found}))
	id, ok := fx.ids.Get(path)
	require.True(t, ok)
	assert.Equal(t, "tg-arcanum_7.pdf", id)
}

func TestUnexpectedChoiceSendsNothing(t *testing.T) {
	fx := newFixture(t)
	c := newFakeContext(11)
	require.NoError(t, fx.tr.OnChoice(dialogue.TokenYes)(c))
	assert.Empty(t, c.drain())
}

type fakeEngine struct {
	err error
}

func (f fakeEngine) HandleText(context.Context, int64, string) ([]dialogue.Action, error) {
	return nil, f.err
}

func (f fakeEngine) HandleChoice(context.Context, int64, string) ([]dialogue.Action, error) {
	return nil, f.err
}

func TestEngineFailureApologises(t *testing.T) {
	fx := newFixture(t)
	boom := errors.New("store down")
	tr, err := New(Options{Engine: fakeEngine{err: boom}, Documents: fx.tr.docs, Messages: fx.msgs})
	require.NoError(t, err)

	c := newFakeContext(12)
	c.text = "hi"
	assert.ErrorIs(t, tr.OnText(c), boom)
	out := c.drain()
	require.Len(t, out, 1)
	assert.Equal(t, fx.msgs.InternalError, out[0].what)
}

func TestRegister(t *testing.T) {
	fx := newFixture(t)
	reg := tg.NewRegistry()
	require.NoError(t, fx.tr.Register(reg))

	_, _, ok := reg.LookupCommand("/Start")
	assert.True(t, ok)
	assert.ElementsMatch(t, dialogue.Tokens(), reg.ListCallbacks())
	assert.NotNil(t, reg.TextFallback())
	assert.Error(t, fx.tr.Register(reg), "second registration collides")

	c := newFakeContext(13)
	require.NoError(t, reg.CallbackNotFound()(c))
	require.Len(t, c.responses, 1)
	assert.Equal(t, fx.msgs.Unhandled, c.responses[0].Text)

	require.NoError(t, fx.tr.UnknownDocument()(c))
	assert.Equal(t, fx.msgs.Unhandled, c.drain()[0].what)
}
