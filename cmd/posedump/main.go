// Command posedump loads an animated model and prints the world transforms of its joints at a given time.
//
// Usage:
//
//	posedump [flags] <model.gltf|model.glb|model.yaml>
//
// Examples:
//
//	# Pose of the first animation at t=0.5s
//	posedump -t 0.5 rig.glb
//
//	# Go-syntax dump of a named animation using the sorted backend
//	posedump -anim walk -backend sorted -format spew rig.glb
//
//	# Play 500 instances through a scene for 10 seconds of frames and report throughput
//	posedump -instances 500 -frames 600 rig.glb
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-pose/engine"
	"github.com/Carmen-Shannon/oxy-pose/engine/animator"
	"github.com/Carmen-Shannon/oxy-pose/engine/loader"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/Carmen-Shannon/oxy-pose/engine/profiler"
	"github.com/Carmen-Shannon/oxy-pose/engine/scene"
	"github.com/Carmen-Shannon/oxy-pose/internal/config"
	"github.com/Carmen-Shannon/oxy-pose/internal/logging"
)

// sceneFrameRate is the simulated frame rate of -instances runs.
const sceneFrameRate = 60

type poseDump struct {
	Model      string       `json:"model"`
	Animation  string       `json:"animation"`
	Backend    string       `json:"backend"`
	Time       float64      `json:"time"`
	LocalTime  float32      `json:"local_time"`
	Joints     []string     `json:"joints"`
	Transforms []mgl32.Mat4 `json:"transforms"`
}

type options struct {
	configPath string
	time       float64
	anim       string
	backend    string
	format     string
	instances  int
	frames     int
	path       string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("posedump", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "path to a TOML config file")
	fs.Float64Var(&opts.time, "t", 0, "wall-clock time in seconds")
	fs.StringVar(&opts.anim, "anim", "", "animation name (default: the first animation)")
	fs.StringVar(&opts.backend, "backend", "", "joint traversal: memoized or sorted (default: from config)")
	fs.StringVar(&opts.format, "format", "json", "output format: json or spew")
	fs.IntVar(&opts.instances, "instances", 0, "play this many instances through a scene instead of dumping one pose")
	fs.IntVar(&opts.frames, "frames", 10*sceneFrameRate, "frames to simulate with -instances")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: posedump [flags] <model.gltf|model.glb|model.yaml>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: exactly one model file required\n\n")
		fs.Usage()
		return 2
	}
	opts.path = fs.Arg(0)

	if err := dump(opts, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func dump(opts options, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.backend != "" {
		cfg.Animation.Backend = opts.backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if opts.format != "json" && opts.format != "spew" {
		return errors.Errorf("unknown format %q", opts.format)
	}

	logCfg := cfg.LoggingConfig("posedump")
	logCfg.Output = stderr
	logger := logging.New(logCfg)

	m, err := loader.NewLoader(loader.WithLogger(logger)).Load(opts.path)
	if err != nil {
		return err
	}

	anim, err := pickAnimation(m, opts.anim)
	if err != nil {
		return err
	}

	a := animator.NewAnimator(cfg.BackendType(), append(cfg.AnimatorOptions(), animator.WithLogger(logger))...)

	if opts.instances > 0 {
		return runScene(cfg, a, anim, opts, logger, stdout)
	}

	out := poseDump{
		Model:      m.Name(),
		Animation:  anim.Name,
		Backend:    a.BackendType().String(),
		Time:       opts.time,
		LocalTime:  a.LocalTime(anim, opts.time),
		Joints:     make([]string, 0, anim.Skeleton.JointCount()),
		Transforms: a.ComputePoseAt(anim, opts.time),
	}
	for _, j := range anim.Skeleton.Joints {
		out.Joints = append(out.Joints, j.Name)
	}

	if opts.format == "spew" {
		cs := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
		cs.Fdump(stdout, out)
		return nil
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(out), "failed to write pose")
}

// pickAnimation returns the named animation, or the first one when name is empty.
func pickAnimation(m model.Model, name string) (*model.Animation, error) {
	if m.AnimationCount() == 0 {
		return nil, errors.Errorf("model %q has no animations", m.Name())
	}
	if name == "" {
		return m.Animations()[0], nil
	}
	anim := m.Animation(name)
	if anim == nil {
		return nil, errors.Errorf("animation %q not found; available: %v", name, m.AnimationNames())
	}
	return anim, nil
}

// runScene plays opts.instances staggered copies of anim for opts.frames frames and reports throughput.
func runScene(cfg *config.Config, a animator.Animator, anim *model.Animation, opts options, logger *slog.Logger, stdout io.Writer) error {
	sceneOpts := []scene.SceneBuilderOption{
		scene.WithAnimator(a),
		scene.WithQueueSize(cfg.Scene.QueueSize),
		scene.WithIdleTimeout(cfg.IdleTimeout()),
		scene.WithLogger(logger),
	}
	if cfg.Scene.Workers > 0 {
		sceneOpts = append(sceneOpts, scene.WithComputeWorkers(cfg.Scene.Workers))
	}
	s := scene.NewScene("posedump", sceneOpts...)

	for i := 0; i < opts.instances; i++ {
		s.AddInstance(anim, -float64(i)/sceneFrameRate)
	}

	e := engine.NewEngine(
		engine.WithLogger(logger),
		engine.WithTickRate(sceneFrameRate),
		engine.WithScene(0, s),
		engine.WithProfiling(cfg.Profiler.Enabled),
		engine.WithProfiler(profiler.NewProfiler(
			profiler.WithInterval(cfg.ProfilerInterval()),
			profiler.WithLogger(logger),
		)),
	)

	start := time.Now()
	poses := 0
	for f := 0; f < opts.frames; f++ {
		poses += e.Step(opts.time + float64(f)/sceneFrameRate)
	}
	elapsed := time.Since(start)

	rate := 0.0
	if elapsed > 0 {
		rate = float64(poses) / elapsed.Seconds()
	}
	_, err := fmt.Fprintf(stdout, "evaluated %d poses (%d instances x %d frames) in %s: %.0f poses/s\n",
		poses, opts.instances, opts.frames, elapsed.Round(time.Microsecond), rate)
	return err
}
