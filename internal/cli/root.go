// Package cli wires configuration, credentials and the board runtime
// behind the taskboard command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/taskboard/internal/api"
	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/controller"
	"github.com/nhle/taskboard/internal/credential"
	"github.com/nhle/taskboard/internal/history"
	"github.com/nhle/taskboard/internal/logging"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// App holds the global flags shared by every command.
type App struct {
	ConfigPath string
	APIURL     string
}

// NewRootCmd builds the command tree. Running without a subcommand opens
// the board.
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "taskboard",
		Short:         "Kanban board for the task service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Open the board
  taskboard

  # Point at another server for one run
  taskboard --api-url http://tasks.internal:8080

  # Store the API token in the system keyring
  taskboard token set <token>
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runTUI(cmd.Context(), app); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", model.DefaultConfigPath(), "Path to the config file")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", "", "Task service base URL (overrides config)")

	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newHistoryCmd(app))

	return cmd
}

// runtime is everything a command needs to talk to the service.
type runtime struct {
	cfg     *model.AppConfig
	log     *log.Logger
	ctl     *controller.Controller
	remote  *api.Client
	closers []io.Closer
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			r.log.WithError(err).Warn("close failed")
		}
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(app *App) (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(app.ConfigPath)
	if err != nil {
		return nil, err
	}
	if app.APIURL != "" {
		cfg.API.BaseURL = strings.TrimRight(app.APIURL, "/")
	}
	return cfg, nil
}

// newRuntime builds the logger, API client, cache and controller.
func newRuntime(app *App, n controller.Notifier) (*runtime, error) {
	cfg, err := loadConfig(app)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: logger, closers: []io.Closer{logCloser}}

	token, err := credential.Token()
	if err != nil {
		// The keyring being unavailable is not fatal; the server may not
		// need a token.
		logger.WithError(err).Warn("could not read API token")
	}

	rt.remote = api.NewClient(cfg.API.BaseURL,
		api.WithToken(token),
		api.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		api.WithPageSize(cfg.API.PageSize),
	)

	b := board.New(nil)
	h := history.New(rt.remote, b, cfg.RestoreStatusValue(), logger)

	opts := []controller.Option{controller.WithLogger(logger)}
	if cfg.Cache.Enabled {
		cache, err := store.NewSQLiteStore(cfg.Cache.Path)
		if err != nil {
			logger.WithError(err).WithField("path", cfg.Cache.Path).Warn("snapshot cache disabled")
		} else {
			rt.closers = append(rt.closers, cache)
			opts = append(opts, controller.WithCache(cache))
		}
	}

	rt.ctl = controller.New(b, rt.remote, h, n, opts...)
	logger.WithFields(log.Fields{
		"api":   cfg.API.BaseURL,
		"cache": cfg.Cache.Enabled,
	}).Info("taskboard starting")
	return rt, nil
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
	return err
}

func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
