package commands

import (
	"fmt"

	"git.home.luguber.info/inful/getbuf/internal/pipeline"
	"git.home.luguber.info/inful/getbuf/internal/report"
)

// GenCmd implements the 'gen' command.
type GenCmd struct {
	ModuleArgs
	Clean  bool   `help:"Remove the contents of the output directories before generating"`
	JSON   bool   `short:"j" name:"json" help:"Print the result as JSON (same as --format=json)"`
	Format string `help:"Result format" enum:"text,json,markdown,html" default:"text"`
}

func (g *GenCmd) Run(glob *Global, cli *CLI) error {
	format, err := outputFormat(g.Format, g.JSON)
	if err != nil {
		return err
	}
	var opts runtimeOptions
	if cli.Verbose && format == report.FormatText {
		opts.stream = glob.stderr()
	}
	rt, err := newRuntime(cli, g.ModuleArgs, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	res := rt.orchestrator.Run(glob.context(), rt.request(g.ModuleArgs, g.Clean, format == report.FormatJSON))
	return emit(glob, res, format)
}

func outputFormat(name string, asJSON bool) (report.Format, error) {
	if asJSON {
		return report.FormatJSON, nil
	}
	return report.ParseFormat(name)
}

// emit prints the rendered result and converts a failed run into an ExitError.
func emit(glob *Global, res *pipeline.Result, format report.Format) error {
	out, err := report.RenderFormat(res, format)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(glob.stdout(), out); err != nil {
		return err
	}
	if res.Success {
		return nil
	}
	return &ExitError{Code: res.ExitCode}
}
