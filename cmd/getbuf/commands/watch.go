package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/getbuf/internal/compiler"
	"git.home.luguber.info/inful/getbuf/internal/locator"
	"git.home.luguber.info/inful/getbuf/internal/logfields"
	"git.home.luguber.info/inful/getbuf/internal/report"
	"git.home.luguber.info/inful/getbuf/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	ModuleArgs
	Clean    bool          `help:"Clean output directories before every run"`
	JSON     bool          `short:"j" name:"json" help:"Print one JSON document per run"`
	Interval time.Duration `help:"Also regenerate periodically (0 disables; overrides watch.interval)"`
	Debounce time.Duration `help:"Quiet period before a change triggers a run (overrides watch.debounce)"`
}

func (w *WatchCmd) Run(glob *Global, cli *CLI) error {
	rt, err := newRuntime(cli, w.ModuleArgs, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	ms, err := locator.Locate(w.Source, w.Template)
	if err != nil {
		return err
	}
	tmpl, err := compiler.ParseTemplate(ms.ConfigPath, ms.SourceRoot, rt.cfg.PluginPolicy())
	if err != nil {
		return err
	}

	format := report.FormatText
	if w.JSON {
		format = report.FormatJSON
	}
	run := func(ctx context.Context, reason watch.Reason) {
		req := rt.request(w.ModuleArgs, w.Clean, w.JSON)
		res := rt.orchestrator.Run(ctx, req)
		rt.flushMetrics()
		out, err := report.RenderFormat(res, format)
		if err != nil {
			rt.logger.Error("Render result failed", slog.String("reason", string(reason)), logfields.Error(err))
			return
		}
		_, _ = fmt.Fprint(glob.stdout(), out)
	}

	interval := rt.cfg.WatchInterval()
	if w.Interval > 0 {
		interval = w.Interval
	}
	debounce := rt.cfg.WatchDebounce()
	if w.Debounce > 0 {
		debounce = w.Debounce
	}
	watcher, err := watch.New(run, watch.Options{
		Roots:    []string{ms.SourceRoot},
		Files:    []string{ms.ConfigPath},
		Ignore:   tmpl.OutputDirs,
		Debounce: debounce,
		Interval: interval,
		Logger:   rt.logger,
	})
	if err != nil {
		return err
	}
	return watcher.Run(glob.context())
}
