package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/getbuf/internal/compiler"
	"git.home.luguber.info/inful/getbuf/internal/config"
	"git.home.luguber.info/inful/getbuf/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct {
	Template string `name:"template" help:"Also report the version of the first plugin in this generation config"`
}

func (v *VersionCmd) Run(glob *Global, cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	inv := compiler.NewInvoker(compiler.WithBinary(cfg.Compiler.Binary), compiler.WithPolicy(cfg.PluginPolicy()))
	ctx := glob.context()
	out := glob.stdout()

	fmt.Fprintf(out, "getbuf %s\n", version.String())
	if version.BuildTime != "" && version.BuildTime != "unknown" {
		fmt.Fprintf(out, "built %s\n", version.BuildTime)
	}
	tool := inv.ToolVersion(ctx)
	if tool == "" {
		tool = "not found"
	}
	fmt.Fprintf(out, "%s %s\n", inv.Binary(), tool)

	if v.Template == "" {
		return nil
	}
	tmpl, err := compiler.ParseTemplate(v.Template, filepath.Dir(v.Template), cfg.PluginPolicy())
	if err != nil {
		return err
	}
	pl := tmpl.Plugins[0]
	plugin := inv.PluginVersion(ctx, tmpl)
	if plugin == "" {
		plugin = "unknown"
	}
	fmt.Fprintf(out, "%s %s\n", pl.Ref(), plugin)
	return nil
}
