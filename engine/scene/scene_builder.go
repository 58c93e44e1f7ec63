package scene

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-pose/engine/animator"
	"github.com/Carmen-Shannon/oxy-pose/engine/profiler"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithAnimator sets the evaluator shared by every instance.
//
// Parameters:
//   - a: the animator
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAnimator(a animator.Animator) SceneBuilderOption {
	return func(s *scene) {
		s.animator = a
	}
}

// WithComputeWorkers sets the number of worker goroutines evaluating instances.
// Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithQueueSize sets the compute pool's task queue capacity. Defaults to 256.
//
// Parameters:
//   - n: the queue capacity (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithQueueSize(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.queueSize = n
	}
}

// WithIdleTimeout sets how long an idle compute worker lingers before exiting. Defaults to 1 second.
//
// Parameters:
//   - d: the idle timeout
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithIdleTimeout(d time.Duration) SceneBuilderOption {
	return func(s *scene) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithProfiler attaches a profiler ticked at the end of every Update.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) SceneBuilderOption {
	return func(s *scene) {
		s.profiler = p
	}
}

// WithLogger sets the scene's logger.
//
// Parameters:
//   - logger: the logger instance
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) SceneBuilderOption {
	return func(s *scene) {
		if logger != nil {
			s.logger = logger
		}
	}
}
