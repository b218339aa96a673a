package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/getbuf/cmd/getbuf/commands"
	"git.home.luguber.info/inful/getbuf/internal/foundation/errors"
	"git.home.luguber.info/inful/getbuf/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cli := &commands.CLI{}
	parser, err := kong.New(cli,
		kong.Name("getbuf"),
		kong.Description("Generate code from protobuf modules with buf, with safe cleaning and lifecycle hooks."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Vars{"version": version.String()},
	)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return errors.ExitInternal
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "getbuf: error: %v\n", err)
		return errors.ExitUsage
	}

	err = kctx.Run(&commands.Global{Ctx: ctx, Stdout: stdout, Stderr: stderr}, cli)
	if err == nil {
		return errors.ExitOK
	}
	var exitErr *commands.ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}
	adapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	_, _ = fmt.Fprintln(stderr, adapter.FormatError(err))
	return adapter.ExitCodeFor(err)
}
