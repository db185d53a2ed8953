package cli

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/api"
	"github.com/nhle/taskboard/internal/app"
	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/controller"
	appsync "github.com/nhle/taskboard/internal/sync"
	"github.com/nhle/taskboard/internal/theme"
)

func runTUI(ctx context.Context, a *App) error {
	if ctx == nil {
		ctx = context.Background()
	}

	notes := controller.NewChanNotifier(32)
	rt, err := newRuntime(a, notes)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := theme.Apply(rt.cfg.Display.Theme); err != nil {
		rt.log.WithError(err).Warn("unknown theme, using default")
	}

	if err := rt.ctl.LoadCached(ctx); err != nil {
		rt.log.WithError(err).Warn("could not load cached snapshot")
	}

	sortMode, err := board.ParseSortMode(rt.cfg.Board.DefaultSort)
	if err != nil {
		rt.log.WithError(err).Warn("unknown default sort, using manual")
		sortMode = board.SortManual
	}

	poller := appsync.New(rt.remote, time.Duration(rt.cfg.Board.PollIntervalSec)*time.Second, rt.log)
	defer poller.Stop()

	// History is fetched once up front; the board comes from the poller.
	go func() {
		if _, err := rt.ctl.FetchHistory(ctx); err != nil {
			rt.log.WithError(err).Warn("initial history fetch failed")
		}
	}()

	root := app.New(rt.ctl, poller, notes, sortMode).WithSettings(a.ConfigPath, rt.cfg, api.CheckConnection)
	p := tea.NewProgram(root, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
