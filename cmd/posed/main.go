// Command posed serves animated models over HTTP: JSON summaries, single poses and websocket pose streams.
//
// Usage:
//
//	posed [flags] <model files...>
//
// Examples:
//
//	# Serve two models on the configured address
//	posed rig.glb arm.yaml
//
//	# Reload models when their files change
//	posed -watch -addr :9000 rig.glb
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/oxy-pose/engine/animator"
	"github.com/Carmen-Shannon/oxy-pose/engine/loader"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/Carmen-Shannon/oxy-pose/internal/config"
	"github.com/Carmen-Shannon/oxy-pose/internal/logging"
	"github.com/Carmen-Shannon/oxy-pose/web"
)

type options struct {
	configPath string
	addr       string
	watch      bool
	files      []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

// run executes the command until ctx is cancelled and returns the process exit code.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("posed", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "path to a TOML config file")
	fs.StringVar(&opts.addr, "addr", "", "listen address (default: from config)")
	fs.BoolVar(&opts.watch, "watch", false, "reload models when their files change")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: posed [flags] <model files...>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	opts.files = fs.Args()

	if err := serve(ctx, opts, stderr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, opts options, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	logCfg := cfg.LoggingConfig("posed")
	logCfg.Output = stderr
	logger := logging.New(logCfg)

	l := loader.NewLoader(loader.WithLogger(logger))
	for _, path := range opts.files {
		if _, err := l.Load(path); err != nil {
			return err
		}
	}
	if len(opts.files) == 0 {
		logger.Warn("no model files given; serving an empty catalog")
	}

	a := animator.NewAnimator(cfg.BackendType(), append(cfg.AnimatorOptions(), animator.WithLogger(logger))...)

	if opts.watch {
		if err := l.Watch(ctx, reloadLogger(logger, a)); err != nil {
			return err
		}
	}

	srv := web.NewServer(l, a,
		web.WithLogger(logger),
		web.WithAccessLog(stderr),
		web.WithStreamFPS(cfg.Server.StreamFPS, cfg.Server.MaxStreamFPS),
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

// reloadLogger reports reloads and drops cached traversal state for the replaced skeleton.
func reloadLogger(logger *slog.Logger, a animator.Animator) loader.ReloadFunc {
	return func(path string, previous, m model.Model, err error) {
		if err != nil {
			logger.Error("model reload failed; keeping previous version", "path", path, "error", err)
			return
		}
		if previous != nil {
			a.Forget(previous.Skeleton())
		}
		logger.Info("model reloaded", "path", path, "name", m.Name(), "animations", m.AnimationNames())
	}
}
