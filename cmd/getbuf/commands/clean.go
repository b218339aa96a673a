package commands

import "git.home.luguber.info/inful/getbuf/internal/report"

// CleanCmd implements the 'clean' command: locate and clean, no generation.
type CleanCmd struct {
	ModuleArgs
	JSON bool `short:"j" name:"json" help:"Print the result as JSON"`
}

func (c *CleanCmd) Run(glob *Global, cli *CLI) error {
	rt, err := newRuntime(cli, c.ModuleArgs, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	res := rt.orchestrator.Clean(glob.context(), rt.request(c.ModuleArgs, true, c.JSON))
	format := report.FormatText
	if c.JSON {
		format = report.FormatJSON
	}
	return emit(glob, res, format)
}
