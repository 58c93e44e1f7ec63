package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-pose/engine/profiler"
	"github.com/Carmen-Shannon/oxy-pose/engine/scene"
)

// engine is the implementation of the Engine interface.
type engine struct {
	mu sync.RWMutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running     bool
	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	profiler         *profiler.Profiler
	profilingEnabled bool
	logger           *slog.Logger

	engineTickRate time.Duration
	tickCallback   func(absoluteTime float64, deltaTime float32)

	scenes map[int]scene.Scene
}

// Engine drives a set of scenes from a frame clock.
// Run advances every scene in real time at the tick rate; Step advances them to an explicit time,
// which suits offline batch evaluation and tests.
type Engine interface {
	// EnableProfiler enables per-frame profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// If the engine is running, the change takes effect immediately.
	//
	// Parameters:
	//   - fps: target ticks per second (values <= 0 select 60)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called after every frame.
	//
	// Parameters:
	//   - callback: receives the frame's absolute time in seconds and the seconds since the previous frame
	SetTickCallback(callback func(absoluteTime float64, deltaTime float32))

	// AddScene registers a scene under key. Scenes update in ascending key order.
	//
	// Parameters:
	//   - key: the ordering key
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene unregisters the scene under key.
	//
	// Parameters:
	//   - key: the ordering key
	RemoveScene(key int)

	// Scene returns the scene under key, or nil.
	//
	// Parameters:
	//   - key: the ordering key
	//
	// Returns:
	//   - scene.Scene: the scene, or nil
	Scene(key int) scene.Scene

	// Scenes returns a copy of the registered scenes.
	//
	// Returns:
	//   - map[int]scene.Scene: the scenes keyed by ordering key
	Scenes() map[int]scene.Scene

	// Step updates every scene at absoluteTime and ticks the profiler when enabled.
	//
	// Parameters:
	//   - absoluteTime: the frame time in seconds
	//
	// Returns:
	//   - int: the number of poses evaluated across all scenes
	Step(absoluteTime float64) int

	// Run steps the scenes at the tick rate, with time measured from the call, until ctx is done or Quit is called.
	// Run may only be called once.
	//
	// Parameters:
	//   - ctx: controls the loop lifetime
	Run(ctx context.Context)

	// Quit stops a running loop. It is safe to call more than once.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine with the given options. The default tick rate is 60 per second.
//
// Parameters:
//   - options: functional options to configure the engine
//
// Returns:
//   - Engine: the engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		logger:          slog.Default(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	return e
}

func (e *engine) Step(absoluteTime float64) int {
	e.mu.RLock()
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	ordered := make([]scene.Scene, len(keys))
	for i, k := range keys {
		ordered[i] = e.scenes[k]
	}
	profiling := e.profilingEnabled
	e.mu.RUnlock()

	poses := 0
	for _, s := range ordered {
		poses += s.Update(absoluteTime)
	}

	if profiling {
		e.profiler.Tick(poses)
	}
	return poses
}

func (e *engine) Run(ctx context.Context) {
	e.mu.Lock()
	e.running = true
	rate := e.engineTickRate
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	start := time.Now()
	lastTick := start
	e.logger.Info("engine started", "tick_rate", rate)

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.quitChannel:
			return
		case now := <-ticker.C:
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			absoluteTime := now.Sub(start).Seconds()

			e.Step(absoluteTime)

			e.mu.RLock()
			callback := e.tickCallback
			e.mu.RUnlock()
			if callback != nil {
				callback(absoluteTime, dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	e.mu.Lock()
	running := e.running
	if !running {
		e.engineTickRate = newRate
	}
	e.mu.Unlock()
	if !running {
		return
	}

	// Replace any pending update so the loop sees the latest value.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(absoluteTime float64, deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

// tickInterval converts a rate in frames per second to a tick period, defaulting to 60 per second.
func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}
