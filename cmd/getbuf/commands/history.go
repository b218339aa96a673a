package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/getbuf/internal/config"
	"git.home.luguber.info/inful/getbuf/internal/foundation/errors"
	"git.home.luguber.info/inful/getbuf/internal/workspace"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	RunID       string `arg:"" optional:"" name:"run-id" help:"Show the stored report of one run"`
	Limit       int    `short:"n" help:"Number of runs to list" default:"20"`
	ProjectRoot string `name:"project-root" help:"Project root the history database is relative to"`
}

func (h *HistoryCmd) Run(glob *Global, cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled() {
		return errors.InvalidConfigError("run history is disabled (history.path: off)").Build()
	}
	explicit := h.ProjectRoot
	if explicit == "" {
		explicit = cfg.ProjectRoot
	}
	store, err := openHistory(cfg, workspace.DetectProjectRoot(explicit, "."))
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "open run history").Build()
	}
	defer store.Close()

	ctx := glob.context()
	if h.RunID != "" {
		run, stages, err := store.GetRun(ctx, h.RunID)
		if err != nil {
			return errors.WrapError(err, errors.CategoryNotFound, "run history").WithContext("run_id", h.RunID).Build()
		}
		if len(run.Document) > 0 {
			_, err = fmt.Fprintln(glob.stdout(), string(run.Document))
			return err
		}
		tw := tabwriter.NewWriter(glob.stdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STAGE\tRESULT\tDURATION")
		for _, st := range stages {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Stage, st.Result, st.Duration)
		}
		return tw.Flush()
	}

	runs, err := store.ListRuns(ctx, h.Limit)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "list run history").Build()
	}
	tw := tabwriter.NewWriter(glob.stdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tDURATION\tOUTCOME\tEXIT\tMODULE\tMESSAGE")
	for _, r := range runs {
		outcome := "success"
		if !r.Success {
			outcome = r.Category
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.RunID, r.StartedAt.Format(time.DateTime), r.Duration.Round(time.Millisecond), outcome, r.ExitCode, r.ModulePath, r.Message)
	}
	return tw.Flush()
}
