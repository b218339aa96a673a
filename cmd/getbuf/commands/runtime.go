package commands

import (
	"io"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/getbuf/internal/artifacts"
	"git.home.luguber.info/inful/getbuf/internal/compiler"
	"git.home.luguber.info/inful/getbuf/internal/config"
	"git.home.luguber.info/inful/getbuf/internal/history"
	"git.home.luguber.info/inful/getbuf/internal/hooks"
	"git.home.luguber.info/inful/getbuf/internal/logfields"
	"git.home.luguber.info/inful/getbuf/internal/metrics"
	"git.home.luguber.info/inful/getbuf/internal/notify"
	"git.home.luguber.info/inful/getbuf/internal/pipeline"
	"git.home.luguber.info/inful/getbuf/internal/workspace"
)

// runtime is the wired application for one command invocation.
type runtime struct {
	cfg          *config.Config
	projectRoot  string
	invoker      *compiler.Invoker
	registry     *hooks.Registry
	orchestrator *pipeline.Orchestrator
	recorder     *metrics.PrometheusRecorder
	history      *history.SQLiteStore
	notifier     *notify.Notifier
	logger       *slog.Logger
}

type runtimeOptions struct {
	stream io.Writer
}

func newRuntime(cli *CLI, args ModuleArgs, opts runtimeOptions) (*runtime, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	explicit := args.ProjectRoot
	if explicit == "" {
		explicit = cfg.ProjectRoot
	}
	root := workspace.DetectProjectRoot(explicit, args.Source)
	ws, err := workspace.NewManager(root, workspace.WithSubdirs(cfg.Workspace.Subdirs...))
	if err != nil {
		return nil, err
	}

	invOpts := []compiler.Option{
		compiler.WithBinary(cfg.Compiler.Binary),
		compiler.WithExtraArgs(cfg.Compiler.ExtraArgs...),
		compiler.WithEnv(cfg.Compiler.Env),
		compiler.WithTimeout(cfg.CompilerTimeout()),
		compiler.WithPolicy(cfg.PluginPolicy()),
	}
	if opts.stream != nil {
		invOpts = append(invOpts, compiler.WithStream(opts.stream))
	}
	inv := compiler.NewInvoker(invOpts...)

	rt := &runtime{
		cfg:         cfg,
		projectRoot: ws.ProjectRoot(),
		invoker:     inv,
		registry:    hooks.NewRegistry(),
		logger:      logger,
	}

	sources := []hooks.HookSource{hooks.NewCommandSource(cfg.CommandSpecs())}
	if n := cfg.Notify.NATS; n != nil {
		rt.notifier = notify.NewNotifier(n.URL, n.Subject, notify.WithRetry(cfg.RetryPolicy()))
		sources = append(sources, rt.notifier)
	}
	if s3 := cfg.Artifacts.S3; s3 != nil {
		store, err := artifacts.NewS3Store(artifacts.S3Config{
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Bucket:    s3.Bucket,
			UseSSL:    s3.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		sources = append(sources, artifacts.NewUploader(store, s3.Prefix, artifacts.Policy(s3.When)).WithRetry(cfg.RetryPolicy()))
	}
	if err := rt.registry.Load(sources...); err != nil {
		return nil, err
	}

	observers := pipeline.MultiObserver{}
	if cfg.Metrics.Textfile != "" {
		rt.recorder = metrics.NewPrometheusRecorder(nil)
		observers = append(observers, pipeline.RecorderObserver{Rec: rt.recorder})
	}
	if cfg.History.Enabled() {
		if store, err := openHistory(cfg, rt.projectRoot); err != nil {
			logger.Warn("Run history disabled", logfields.Error(err))
		} else {
			rt.history = store
			observers = append(observers, history.NewObserver(store, args.Source, logger))
		}
	}

	rt.orchestrator = pipeline.NewOrchestrator(rt.registry, inv, ws,
		pipeline.WithObserver(observers),
		pipeline.WithLogger(logger),
		pipeline.WithTelemetry(true),
	)
	return rt, nil
}

func openHistory(cfg *config.Config, projectRoot string) (*history.SQLiteStore, error) {
	path := cfg.History.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(projectRoot, path)
	}
	return history.NewSQLiteStore(path)
}

func (rt *runtime) request(args ModuleArgs, clean, jsonOutput bool) pipeline.Request {
	return pipeline.Request{
		ModulePath:          args.Source,
		ConfigPath:          args.Template,
		Clean:               clean,
		JSONOutput:          jsonOutput,
		RequireModuleConfig: !args.AllowMissingBufYAML,
	}
}

// flushMetrics writes the textfile export; safe to call after every run.
func (rt *runtime) flushMetrics() {
	if rt.recorder == nil {
		return
	}
	if err := rt.recorder.WriteTextfile(rt.cfg.Metrics.Textfile); err != nil {
		rt.logger.Warn("Failed to write metrics textfile", logfields.Path(rt.cfg.Metrics.Textfile), logfields.Error(err))
	}
}

func (rt *runtime) Close() {
	rt.flushMetrics()
	if rt.notifier != nil {
		if err := rt.notifier.Close(); err != nil {
			rt.logger.Warn("Failed to close NATS connection", logfields.Error(err))
		}
	}
	if rt.history != nil {
		if err := rt.history.Close(); err != nil {
			rt.logger.Warn("Failed to close run history", logfields.Error(err))
		}
	}
}
