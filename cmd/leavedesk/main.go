package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/nhle/leave-management/internal/api"
	"github.com/nhle/leave-management/internal/app"
	"github.com/nhle/leave-management/internal/auth"
	"github.com/nhle/leave-management/internal/confirm"
	"github.com/nhle/leave-management/internal/credential"
	"github.com/nhle/leave-management/internal/events"
	"github.com/nhle/leave-management/internal/identity"
	"github.com/nhle/leave-management/internal/logging"
	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/notification"
	"github.com/nhle/leave-management/internal/session"
	"github.com/nhle/leave-management/internal/store"
	"github.com/nhle/leave-management/internal/ui/leaves"
	"github.com/nhle/leave-management/internal/ui/login"
	"github.com/nhle/leave-management/internal/ui/profile"
)

const configFlag = "config"

func main() {
	if err := newApp(run).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "leavedesk: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the command line; action receives the config path.
func newApp(action func(configPath string) error) *cli.App {
	app := cli.NewApp()
	app.Name = "leavedesk"
	app.Usage = "Terminal client for the leave management service"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    configFlag,
			Aliases: []string{"c"},
			Value:   model.DefaultConfigPath(),
			Usage:   "path to the configuration file",
			EnvVars: []string{"LEAVEDESK_CONFIG"},
		},
	}
	app.Action = func(c *cli.Context) error {
		return action(c.String(configFlag))
	}
	return app
}

func run(configPath string) error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, logFile, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer logFile.Close()

	log.Info().Str("config", configPath).Str("api", cfg.API.BaseURL).Msg("starting leavedesk")

	var storage session.Storage
	ring, err := credential.Open(cfg.Storage.KeyringDir)
	if err != nil {
		log.Warn().Err(err).Msg("keyring unavailable, session will not survive restarts")
		storage = session.NewMemoryStorage()
	} else {
		storage = ring
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	cache, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer cache.Close()

	bus := events.NewBus()

	// The manager is created after the client, so the 401 hook reaches
	// it through this variable.
	var manager *auth.Manager
	client := api.NewClient(cfg.API.BaseURL, storage,
		api.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		api.WithMaxRetries(cfg.API.MaxRetries),
		api.WithLogger(log.With().Str("component", "api").Logger()),
		api.WithUnauthorizedHandler(func() {
			if manager != nil {
				manager.RefreshUser()
			}
		}),
	)
	authSvc := api.NewAuthService(client)
	manager = auth.NewManager(storage, authSvc, bus, log)

	center := notification.NewCenter(api.NewNotificationService(client), bus,
		notification.WithPollInterval(time.Duration(cfg.Notifications.PollIntervalSec)*time.Second),
		notification.WithCache(cache),
		notification.WithLogger(log),
	)
	if err := bus.Subscribe(events.TopicAuthChanged, center.HandleAuthChanged); err != nil {
		return fmt.Errorf("subscribing notification center: %w", err)
	}
	defer bus.Unsubscribe(events.TopicAuthChanged, center.HandleAuthChanged) //nolint:errcheck

	confirmer := confirm.NewController(bus)

	var program *tea.Program
	microsoft := identity.NewBridge(cfg.Microsoft, authSvc, manager, bus,
		identity.WithLogger(log),
		identity.WithPrompt(func(code identity.DeviceCode) {
			if program != nil {
				program.Send(login.DeviceCodeMsg(code))
			}
		}),
	)
	if err := microsoft.Initialize(); err != nil {
		log.Warn().Err(err).Msg("microsoft sign-in disabled")
	}

	// Restore the persisted session before the UI reads it.
	manager.Initialize()
	if u := manager.User(); u != nil {
		center.HandleAuthChanged(u)
	}

	root := app.New(app.Deps{
		Session:       manager,
		Notifications: center,
		Confirm:       confirmer,
		Microsoft:     microsoft,
		Leaves: leaves.Deps{
			Service:   api.NewLeaveService(client),
			Types:     api.NewLeaveTypeService(client),
			Cache:     cache,
			Confirmer: confirmer,
			Notifier:  events.NewNotifier(bus),
		},
		Balances: api.NewLeaveBalanceService(client),
		Profile: profile.Deps{
			Users:    api.NewUserService(client),
			Session:  manager,
			Notifier: events.NewNotifier(bus),
		},
		Cache:      cache,
		Log:        log.With().Str("component", "ui").Logger(),
		ConfigPath: configPath,
		Config:     *cfg,
	})

	program = tea.NewProgram(root, tea.WithAltScreen())
	bridge, err := app.Bridge(bus, program.Send)
	if err != nil {
		return err
	}
	defer closeBridge(bridge, log)

	_, err = program.Run()
	center.Stop()
	if err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	log.Info().Msg("leavedesk stopped")
	return nil
}

func closeBridge(b *app.BusBridge, log zerolog.Logger) {
	if err := b.Close(); err != nil {
		log.Warn().Err(err).Msg("closing bus bridge")
	}
}
