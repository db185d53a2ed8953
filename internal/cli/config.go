package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/model"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(newConfigInitCmd(app))
	cmd.AddCommand(newConfigShowCmd(app))
	return cmd
}

func newConfigInitCmd(app *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(app.ConfigPath); err == nil && !force {
				return writeErr(cmd, fmt.Errorf("%s already exists (use --force to overwrite)", app.ConfigPath))
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return writeErr(cmd, err)
			}

			cfg := model.DefaultAppConfig()
			if app.APIURL != "" {
				cfg.API.BaseURL = app.APIURL
			}
			if err := model.SaveConfig(app.ConfigPath, cfg); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", app.ConfigPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api.base_url          %s\n", cfg.API.BaseURL)
			fmt.Fprintf(out, "api.timeout_sec       %d\n", cfg.API.TimeoutSec)
			fmt.Fprintf(out, "api.page_size         %d\n", cfg.API.PageSize)
			fmt.Fprintf(out, "board.restore_status  %s\n", cfg.Board.RestoreStatus)
			fmt.Fprintf(out, "board.poll_interval   %ds\n", cfg.Board.PollIntervalSec)
			fmt.Fprintf(out, "board.default_sort    %s\n", cfg.Board.DefaultSort)
			fmt.Fprintf(out, "display.theme         %s\n", cfg.Display.Theme)
			fmt.Fprintf(out, "cache.enabled         %t\n", cfg.Cache.Enabled)
			fmt.Fprintf(out, "cache.path            %s\n", cfg.Cache.Path)
			fmt.Fprintf(out, "log.level             %s\n", cfg.Log.Level)
			fmt.Fprintf(out, "log.path              %s\n", cfg.Log.Path)
			return nil
		},
	}
}
