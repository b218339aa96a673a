package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// Global carries process-wide state into every command.
type Global struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
}

func (g *Global) context() context.Context {
	if g.Ctx == nil {
		return context.Background()
	}
	return g.Ctx
}

func (g *Global) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Global) stderr() io.Writer {
	if g.Stderr == nil {
		return os.Stderr
	}
	return g.Stderr
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Application configuration file" default:"getbuf.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	LogJSON bool             `name:"log-json" help:"Emit logs as JSON"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Gen     GenCmd     `cmd:"" help:"Generate code from a protobuf module"`
	Clean   CleanCmd   `cmd:"" help:"Clean the output directories of a generation config"`
	Watch   WatchCmd   `cmd:"" help:"Regenerate whenever schema files or the generation config change"`
	History HistoryCmd `cmd:"" help:"Show recent generation runs"`
	Info    VersionCmd `cmd:"" name:"version" help:"Show getbuf, compiler and plugin versions"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if c.LogJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// ExitError carries a process exit code for a run whose outcome was
// already reported.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// ModuleArgs are the positional arguments shared by gen, clean and watch.
type ModuleArgs struct {
	Source   string `arg:"" name:"source-dir" help:"Protobuf module directory"`
	Template string `arg:"" name:"buf-gen" help:"Generation config (buf.gen.yaml)"`

	ProjectRoot         string `name:"project-root" help:"Boundary for cleaning (default: enclosing git work tree, else the working directory)"`
	AllowMissingBufYAML bool   `name:"allow-missing-buf-yaml" help:"Do not require buf.yaml in the source directory"`
}
