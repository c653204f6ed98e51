// Package app wires the arcanum dialogue into the Telegram runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/arcanumbot/bot/dialogue"
	"github.com/m3rciful/arcanumbot/bot/documents"
	"github.com/m3rciful/arcanumbot/bot/transport"
	"github.com/m3rciful/arcanumbot/core/bootstrap"
	"github.com/m3rciful/arcanumbot/core/buildinfo"
	"github.com/m3rciful/arcanumbot/core/logger"
	"github.com/m3rciful/arcanumbot/core/metrics"
	coretelegram "github.com/m3rciful/arcanumbot/core/telegram"
	"github.com/m3rciful/arcanumbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/arcanumbot/core/telegram/helpers"
	"github.com/m3rciful/arcanumbot/core/telegram/router"
	"github.com/m3rciful/arcanumbot/core/telegram/state"
	"github.com/m3rciful/arcanumbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// StatsCommand is the hidden admin command reporting runtime counters.
const StatsCommand = "/stats"

// App holds the initialised bot components.
type App struct {
	cfg       *Config
	infra     *bootstrap.Result
	store     state.Store
	transport *transport.Telegram
}

// Bootstrap initialises logging, the session store and the dialogue components.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	return bootstrapWith(ctx, cfg, bootstrap.Options{})
}

func bootstrapWith(ctx context.Context, cfg *Config, opts bootstrap.Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	opts.Config = cfg.CoreConfig()
	if cfg.Persistent() {
		dbCfg := cfg.Database
		opts.Database = &dbCfg
	}
	infra, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	a, err := build(ctx, cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg *Config, infra *bootstrap.Result) (*App, error) {
	var store state.Store
	if infra.DB != nil {
		sqlStore, err := state.NewSQLStore(infra.DB)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		store = sqlStore
	} else {
		store = state.NewMemoryStore()
	}
	logger.Info(ctx, "sessions", "store", slog.String("backend", cfg.Sessions.Backend))

	msgs, err := dialogue.LoadMessages(cfg.Dialogue.MessagesFile)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	engine, err := dialogue.NewEngine(store, dialogue.WithMessages(msgs))
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	docs, err := documents.NewFSStore(cfg.Documents.Root, cfg.Documents.Extension)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	logger.Info(ctx, "docs", "root", slog.String("path", docs.Root()))

	tr, err := transport.New(transport.Options{
		Engine:    engine,
		Documents: docs,
		FileIDs:   &documents.FileIDs{},
		Messages:  msgs,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	return &App{
		cfg:       cfg,
		infra:     infra,
		store:     store,
		transport: tr,
	}, nil
}

// TelegramRunOptions registers the dialogue handlers and builds the runtime options.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.transport.Register(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}
	err := reg.RegisterCommand(StatsCommand, commands.Command{
		Handler:     a.stats,
		Description: "Статистика бота",
		AdminOnly:   true,
		Hidden:      true,
	})
	if err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: %w", err)
	}

	core := a.cfg.CoreConfig()
	return coretelegram.RunOptions{
		Config:      core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(core, nil),
		Routes:      Routes(reg, core.Telegram.AdminID, a.transport),
		OnStart:     a.onStart,
	}, nil
}

// Routes binds the registry commands, free text, documents and callbacks.
// Updates nothing claims are answered by fb.
func Routes(reg *coretelegram.Registry, adminID int64, fb ui.FallbackProvider) []coretelegram.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: adminID})
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{
		UnknownText:     fb.UnknownText(),
		UnknownDocument: fb.UnknownDocument(),
	})...)
	return append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		NotFound: fb.UnknownCallback(),
	}))
}

func (a *App) onStart(ctx context.Context, _ coretelegram.Runtime) error {
	listen := a.cfg.Metrics.Listen
	if listen == "" {
		return nil
	}
	go func() {
		if err := metrics.Serve(ctx, listen); err != nil {
			logger.Error(ctx, "metrics", "serve", slog.String("err", err.Error()))
		}
	}()
	return nil
}

func (a *App) stats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	sessions := "n/a"
	if counter, ok := a.store.(state.Counter); ok {
		n, err := counter.Count(ctx)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		sessions = strconv.Itoa(n)
	}
	var failures uint64
	if d := tghelpers.CurrentDispatcher(); d != nil {
		failures = d.ErrorCount()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Сессий: %s (%s)\n", sessions, a.cfg.Sessions.Backend)
	fmt.Fprintf(&b, "Ошибок отправки: %d\n", failures)
	fmt.Fprintf(&b, "Сборка: %s", buildinfo.String())
	return tghelpers.SendText(c, b.String())
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	return a.infra.Close()
}
