package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/sheetsbot/core/config"
	coretelegram "github.com/m3rciful/sheetsbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct{ started, stopped *bool }

func (a fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error {
			*a.started = true
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			*a.stopped = true
			return nil
		},
	}, nil
}

func TestRunWrapsLifecycleHooks(t *testing.T) {
	var started, stopped, loggerClosed bool
	var loadedFrom string
	t.Setenv("CONFIG_PATH", "")

	err := Run(Options{
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedFrom = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			return fakeApp{started: &started, stopped: &stopped}, nil
		},
		ShutdownLogger: func() error {
			loggerClosed = true
			return nil
		},
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultConfigPath, loadedFrom)
	assert.True(t, started)
	assert.True(t, stopped)
	assert.True(t, loggerClosed)
}

func TestRunConfigPathFromEnv(t *testing.T) {
	t.Setenv("SHEETSBOT_CONFIG", "/etc/sheetsbot.yaml")
	var loadedFrom string
	err := Run(Options{
		ConfigEnvVar: "SHEETSBOT_CONFIG",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedFrom = path
			return nil, errors.New("no such file")
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	assert.Error(t, err)
	assert.Equal(t, "/etc/sheetsbot.yaml", loadedFrom)
}

func TestRunRequiresCoreConfig(t *testing.T) {
	err := Run(Options{
		DefaultConfigPath: "x.yaml",
		LoadConfig:        func(string) (ConfigCarrier, error) { return carrier{}, nil },
		Bootstrap:         func(ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	assert.Error(t, err)
}
