package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/arcanumbot/bot/dialogue"
	"github.com/m3rciful/arcanumbot/core/bootstrap"
	"github.com/m3rciful/arcanumbot/core/buildinfo"
	coreconfig "github.com/m3rciful/arcanumbot/core/config"
	coredatabase "github.com/m3rciful/arcanumbot/core/database"
	coretelegram "github.com/m3rciful/arcanumbot/core/telegram"
	"github.com/m3rciful/arcanumbot/core/telegram/state"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("SESSIONS_BACKEND", "")
	t.Setenv("DOCUMENTS_ROOT", "")
	path := writeFile(t, t.TempDir(), "config.yaml", "telegram:\n  token_file: \"-\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, BackendMemory, cfg.Sessions.Backend)
	assert.False(t, cfg.Persistent())
	assert.Equal(t, DefaultDocumentsRoot, cfg.Documents.Root)
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.CoreConfig().Telegram.RunMode)
}

func TestLoadConfigSQLiteFromEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("SESSIONS_BACKEND", "SQLite3")
	t.Setenv("DB_PATH", "sessions.db")
	t.Setenv("METRICS_LISTEN", " :9100 ")
	path := writeFile(t, t.TempDir(), "config.yaml", `
telegram:
  token_file: "-"
documents:
  root: /srv/arcana
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Persistent())
	assert.Equal(t, BackendSQLite, cfg.Sessions.Backend)
	assert.Equal(t, coredatabase.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "sessions.db", cfg.Database.Path)
	assert.Equal(t, 1, cfg.Database.MaxConnections)
	assert.Equal(t, "/srv/arcana", cfg.Documents.Root)
	assert.Equal(t, ":9100", cfg.Metrics.Listen)
}

func TestNormalizeRejects(t *testing.T) {
	cfg := &Config{Config: coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "x"}}}
	cfg.Sessions.Backend = "redis"
	assert.ErrorContains(t, cfg.Normalize(), "sessions.backend")

	cfg = &Config{Config: coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "x"}}}
	cfg.Sessions.Backend = BackendPostgres
	assert.ErrorContains(t, cfg.Normalize(), "database.name")

	cfg = &Config{}
	assert.ErrorContains(t, cfg.Normalize(), "token")
}

func testConfig(t *testing.T, backend string) *Config {
	t.Helper()
	cfg := &Config{Config: coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "x", AdminID: 42}}}
	cfg.Sessions.Backend = backend
	cfg.Documents.Root = t.TempDir()
	if backend == BackendSQLite {
		cfg.Database = coredatabase.Config{Path: ":memory:", MigrationsDir: "../../migrations"}
	}
	require.NoError(t, cfg.Normalize())
	return cfg
}

func bootstrapTest(t *testing.T, cfg *Config) *App {
	t.Helper()
	a, err := bootstrapWith(context.Background(), cfg, bootstrap.Options{
		LoggerInit: func(*coreconfig.Config) error { return nil },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestBootstrapNilConfig(t *testing.T) {
	_, err := Bootstrap(context.Background(), nil)
	assert.Error(t, err)
}

func TestBootstrapBadMessagesFile(t *testing.T) {
	cfg := testConfig(t, BackendMemory)
	cfg.Dialogue.MessagesFile = filepath.Join(t.TempDir(), "absent.yaml")
	_, err := bootstrapWith(context.Background(), cfg, bootstrap.Options{
		LoggerInit: func(*coreconfig.Config) error { return nil },
	})
	assert.Error(t, err)
}

func TestTelegramRunOptions(t *testing.T) {
	a := bootstrapTest(t, testConfig(t, BackendMemory))

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	require.NotNil(t, opts.Registry)
	assert.Same(t, a.cfg.CoreConfig(), opts.Config)
	assert.NotNil(t, opts.OnStart)
	assert.NotEmpty(t, opts.Middlewares)

	visible := opts.Registry.ListCommands(true)
	require.Len(t, visible, 1)
	assert.Equal(t, "start", visible[0].Text)
	_, stats, ok := opts.Registry.LookupCommand(StatsCommand)
	require.True(t, ok)
	assert.True(t, stats.AdminOnly)
	assert.Len(t, opts.Registry.ListCallbacks(), len(dialogue.Tokens()))

	endpoints := map[any]bool{}
	for _, r := range opts.Routes {
		endpoints[r.Endpoint] = true
	}
	for _, ep := range []any{dialogue.ResetCommand, StatsCommand, tele.OnText, tele.OnDocument, tele.OnCallback} {
		assert.True(t, endpoints[ep], "missing route %v", ep)
	}

	assert.NoError(t, opts.OnStart(context.Background(), coretelegram.Runtime{}))
}

type statsContext struct {
	tele.Context

	mu    sync.Mutex
	store map[string]any
	sent  []string
}

func (f *statsContext) Sender() *tele.User  { return &tele.User{ID: 42} }
func (f *statsContext) Chat() *tele.Chat    { return &tele.Chat{ID: 42} }
func (f *statsContext) Update() tele.Update { return tele.Update{ID: 9} }

func (f *statsContext) Get(key string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store[key]
}

func (f *statsContext) Set(key string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = v
}

func (f *statsContext) Send(what any, _ ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, what.(string))
	return nil
}

func TestStatsReportsSessions(t *testing.T) {
	for _, backend := range []string{BackendMemory, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			a := bootstrapTest(t, testConfig(t, backend))

			c := &statsContext{store: map[string]any{}}
			require.NoError(t, a.stats(c))
			require.Len(t, c.sent, 1)
			assert.Contains(t, c.sent[0], "Сессий: 0 ("+backend+")")

			require.NoError(t, a.store.Put(context.Background(), 7, state.Session{State: dialogue.StateAwaitName}))
			c.store = map[string]any{}
			require.NoError(t, a.stats(c))
			require.Len(t, c.sent, 2)
			assert.Contains(t, c.sent[1], "Сессий: 1 ("+backend+")")
			assert.True(t, strings.HasSuffix(c.sent[1], buildinfo.String()))
		})
	}
}

type countingFallbacks struct {
	text, document, callback int
}

func (f *countingFallbacks) UnknownText() tele.HandlerFunc {
	f.text++
	return func(tele.Context) error { return nil }
}

func (f *countingFallbacks) UnknownDocument() tele.HandlerFunc {
	f.document++
	return func(tele.Context) error { return nil }
}

func (f *countingFallbacks) UnknownCallback() tele.HandlerFunc {
	f.callback++
	return func(tele.Context) error { return nil }
}

func TestRoutesUseFallbackProvider(t *testing.T) {
	fb := &countingFallbacks{}
	routes := Routes(coretelegram.NewRegistry(), 42, fb)

	require.Len(t, routes, 3)
	assert.Equal(t, tele.OnText, routes[0].Endpoint)
	assert.Equal(t, tele.OnDocument, routes[1].Endpoint)
	assert.Equal(t, tele.OnCallback, routes[2].Endpoint)
	assert.Equal(t, 1, fb.text)
	assert.Equal(t, 1, fb.document)
	assert.Equal(t, 1, fb.callback)
}
