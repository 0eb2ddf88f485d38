// Package app assembles the bot from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/sheetsbot/core/bootstrap"
	corecmd "github.com/m3rciful/sheetsbot/core/cmd"
	coretelegram "github.com/m3rciful/sheetsbot/core/telegram"
	"github.com/m3rciful/sheetsbot/core/telegram/router"
	"github.com/m3rciful/sheetsbot/core/telegram/state"
	"github.com/m3rciful/sheetsbot/internal/bot"
	"github.com/m3rciful/sheetsbot/internal/categories"
	"github.com/m3rciful/sheetsbot/internal/config"
	"github.com/m3rciful/sheetsbot/internal/conversation"
	"github.com/m3rciful/sheetsbot/internal/kv"
	"github.com/m3rciful/sheetsbot/internal/ledger"
	"github.com/m3rciful/sheetsbot/internal/ledger/sheets"
)

// Options replace infrastructure in tests. Zero values select the real implementations.
type Options struct {
	Bootstrap   func(bootstrap.Options) (*bootstrap.Result, error)
	LedgerStore ledger.Store
	CacheStore  kv.Store
}

// App holds the wired components of a running bot.
type App struct {
	cfg *config.Config
	db  *sqlx.DB

	closers    []io.Closer
	ledger     *ledger.Ledger
	categories *categories.Cache
	fsm        state.Manager
	handlers   *bot.Handlers
}

// Bootstrap adapts New to the command runner.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	a, err := New(context.Background(), cfg, Options{})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// New initializes logging and storage and wires the conversation.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	run := opts.Bootstrap
	if run == nil {
		run = bootstrap.Run
	}
	res, err := run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.DatabaseConfig(),
	})
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, db: res.DB}
	if a.db != nil {
		a.closers = append(a.closers, a.db)
	}

	store := opts.CacheStore
	if store == nil {
		var closer io.Closer
		store, closer, err = openStore(ctx, cfg.Cache, a.db)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	ledgerStore := opts.LedgerStore
	if ledgerStore == nil {
		ledgerStore, err = sheets.New(ctx, sheets.Config{
			CredentialsFile: cfg.Sheets.CredentialsFile,
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	a.ledger = ledger.New(ledgerStore, cfg.Sheets.Ledger())
	a.categories = categories.New(store, a.ledger, cfg.Cache.Key)
	a.fsm = state.NewMemoryManager()
	a.handlers = bot.New(conversation.New(a.fsm, a.ledger, a.categories))
	return a, nil
}

// TelegramRunOptions builds routes, middlewares and lifecycle hooks for the runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := a.cfg.CoreConfig()

	reg := coretelegram.NewRegistry()
	a.handlers.Register(reg, a.fsm)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: core.Telegram.AdminID})
	routes = append(routes, router.TextRoutes(a.fsm, reg, router.TextOptions{})...)

	return coretelegram.RunOptions{
		Config:      core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(core, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			bootstrap.Seed(ctx, bootstrap.NamedSeeder{Name: "categories", Seeder: a.categories})
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			return a.Close()
		},
	}, nil
}

// Categories exposes the category cache.
func (a *App) Categories() *categories.Cache {
	return a.categories
}

// Close releases store connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
