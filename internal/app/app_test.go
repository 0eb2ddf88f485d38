package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/sheetsbot/core/bootstrap"
	coreconfig "github.com/m3rciful/sheetsbot/core/config"
	coretelegram "github.com/m3rciful/sheetsbot/core/telegram"
	"github.com/m3rciful/sheetsbot/internal/config"
	"github.com/m3rciful/sheetsbot/internal/kv"
	"github.com/m3rciful/sheetsbot/internal/kv/memstore"
	"github.com/m3rciful/sheetsbot/internal/ledger"
)

type sheetStore struct {
	columns map[int][]string
}

func (s sheetStore) OpenSheet(context.Context, string) (ledger.Worksheet, error) {
	return s, nil
}

func (s sheetStore) ColumnValues(_ context.Context, col int) ([]string, error) {
	return s.columns[col], nil
}

func (s sheetStore) UpdateCell(context.Context, int, int, any) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Telegram.Token = "1:x"
	cfg.Telegram.RunMode = "longpoll"
	cfg.Telegram.AdminID = 42
	cfg.Sheets.SpreadsheetID = "sid"
	cfg.Cache.Backend = kv.BackendMemory
	require.NoError(t, config.Normalize(cfg))
	return cfg
}

func noBootstrap(bootstrap.Options) (*bootstrap.Result, error) {
	return &bootstrap.Result{}, nil
}

func TestRunOptionsWiring(t *testing.T) {
	store := memstore.New()
	a, err := New(context.Background(), testConfig(t), Options{
		Bootstrap:   noBootstrap,
		CacheStore:  store,
		LedgerStore: sheetStore{columns: map[int][]string{7: {"h1", "h2", "Food", "Taxi"}}},
	})
	require.NoError(t, err)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)

	endpoints := map[any]bool{}
	for _, r := range opts.Routes {
		endpoints[r.Endpoint] = true
	}
	assert.True(t, endpoints["/start"])
	assert.True(t, endpoints[tele.OnText])

	names := map[string]bool{}
	for _, mw := range opts.Middlewares {
		names[mw.Name] = true
	}
	assert.True(t, names["owner_only"])

	require.NoError(t, opts.OnStart(context.Background(), coretelegram.Runtime{}))
	assert.Equal(t, []string{"Food", "Taxi"}, a.Categories().Items())

	raw, ok, _ := store.Get(context.Background(), "keyboard")
	require.True(t, ok)
	assert.JSONEq(t, `{"items":["Food","Taxi"]}`, raw)

	require.NoError(t, opts.OnStop(context.Background(), coretelegram.Runtime{}))
}

func TestWarmUpFailureIsNotFatal(t *testing.T) {
	store := memstore.New()
	store.SetHook = func(string, string) error { return errors.New("down") }
	a, err := New(context.Background(), testConfig(t), Options{
		Bootstrap:   noBootstrap,
		CacheStore:  store,
		LedgerStore: sheetStore{columns: map[int][]string{7: {"h1", "h2", "Food"}}},
	})
	require.NoError(t, err)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
	assert.Empty(t, a.Categories().Items())
}

func TestNewPropagatesBootstrapError(t *testing.T) {
	boom := errors.New("db down")
	_, err := New(context.Background(), testConfig(t), Options{
		Bootstrap: func(bootstrap.Options) (*bootstrap.Result, error) { return nil, boom },
	})
	assert.ErrorIs(t, err, boom)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, closer, err := openStore(ctx, config.CacheConfig{Backend: kv.BackendMemory}, nil)
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Nil(t, closer)

	_, _, err = openStore(ctx, config.CacheConfig{Backend: kv.BackendPostgres}, nil)
	assert.Error(t, err)

	_, _, err = openStore(ctx, config.CacheConfig{Backend: "etcd"}, nil)
	assert.Error(t, err)
}

func TestBootstrapRejectsForeignConfig(t *testing.T) {
	_, err := Bootstrap(foreignConfig{})
	assert.Error(t, err)
}

type foreignConfig struct{}

func (foreignConfig) CoreConfig() *coreconfig.Config { return nil }
