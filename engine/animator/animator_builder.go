package animator

import (
	"log/slog"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithDefaultSpeed is an option builder that sets the ticks per second used for animations
// whose Speed is zero. Non-positive values are ignored and the default of 25 is kept.
//
// Parameters:
//   - speed: the fallback playback rate in ticks per second
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the default speed option to an animator
func WithDefaultSpeed(speed float32) AnimatorBuilderOption {
	return func(a *animator) {
		if speed > 0 {
			a.defaultSpeed = speed
		}
	}
}

// WithLocalTransformBuilder is an option builder that replaces the local transform builder.
//
// Parameters:
//   - builder: the builder invoked once per joint per evaluation; nil keeps the default
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the builder option to an animator
func WithLocalTransformBuilder(builder LocalTransformBuilder) AnimatorBuilderOption {
	return func(a *animator) {
		if builder != nil {
			a.builder = builder
		}
	}
}

// WithDebugChecks is an option builder that makes every evaluation validate its animation first
// and panic on structural errors or non-finite times.
//
// Parameters:
//   - enabled: true to validate on every call
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the debug checks option to an animator
func WithDebugChecks(enabled bool) AnimatorBuilderOption {
	return func(a *animator) {
		a.debugChecks = enabled
	}
}

// WithLogger is an option builder that sets the logger used for lifecycle records.
// Evaluation itself never logs.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the logger option to an animator
func WithLogger(logger *slog.Logger) AnimatorBuilderOption {
	return func(a *animator) {
		if logger != nil {
			a.logger = logger
		}
	}
}
