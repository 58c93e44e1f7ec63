package animator

import (
	"log/slog"
	"math"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// animator is the implementation of the Animator interface.
type animator struct {
	backendType  AnimatorBackendType
	backend      AnimatorBackend
	builder      LocalTransformBuilder
	defaultSpeed float32
	debugChecks  bool
	logger       *slog.Logger
}

// Animator defines the public interface of the pose evaluator.
//
// An Animator turns a wall-clock time into the world transform of every joint of an animation's
// skeleton: it normalizes the time into the animation's tick space, finds the bracketing keyframes,
// then delegates the joint walk to an AnimatorBackend. Evaluation performs no I/O, never mutates
// the animation, and is safe to call concurrently as long as each call writes its own output slice.
//
// Structural problems (too short an output, a malformed skeleton) are programming errors and panic.
// Loaders are expected to have run model.Animation.Validate beforehand.
type Animator interface {
	// ComputePose writes the world transform of every joint of anim at absoluteTime into out.
	//
	// Parameters:
	//   - anim: the animation to evaluate; it is only read
	//   - absoluteTime: the wall-clock time in seconds
	//   - out: the caller-owned output, at least anim.Skeleton.JointCount() long
	ComputePose(anim *model.Animation, absoluteTime float64, out []mgl32.Mat4)

	// ComputePoseAt is ComputePose with a freshly allocated output slice.
	//
	// Parameters:
	//   - anim: the animation to evaluate
	//   - absoluteTime: the wall-clock time in seconds
	//
	// Returns:
	//   - []mgl32.Mat4: one world transform per joint
	ComputePoseAt(anim *model.Animation, absoluteTime float64) []mgl32.Mat4

	// LocalTime converts a wall-clock time into the animation's local time in ticks,
	// wrapped into [0, Duration).
	//
	// Parameters:
	//   - anim: the animation whose speed and duration apply
	//   - absoluteTime: the wall-clock time in seconds
	//
	// Returns:
	//   - float32: the animation-local time in ticks
	LocalTime(anim *model.Animation, absoluteTime float64) float32

	// BackendType returns the joint traversal strategy in use.
	//
	// Returns:
	//   - AnimatorBackendType: the backend type
	BackendType() AnimatorBackendType

	// DefaultSpeed returns the ticks per second applied to animations whose Speed is zero.
	//
	// Returns:
	//   - float32: the default speed
	DefaultSpeed() float32

	// Forget drops any per-skeleton state the backend cached for skeleton.
	// It must be called before a skeleton that was already evaluated is edited in place.
	//
	// Parameters:
	//   - skeleton: the skeleton to forget
	Forget(skeleton *model.Skeleton)
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the joint traversal strategy (e.g., BackendTypeMemoized)
//   - options: a variadic list of AnimatorBuilderOption functions to configure the Animator
//
// Returns:
//   - Animator: a new instance of Animator configured with the provided backend and options
func NewAnimator(backendType AnimatorBackendType, options ...AnimatorBuilderOption) Animator {
	a := &animator{
		backendType:  backendType,
		builder:      NewLocalTransformBuilder(),
		defaultSpeed: model.DefaultSpeed,
		logger:       slog.Default(),
	}
	for _, option := range options {
		option(a)
	}

	switch backendType {
	case BackendTypeSorted:
		a.backend = newSortedAnimatorBackend(a.logger)
	default:
		a.backendType = BackendTypeMemoized
		a.backend = newMemoizedAnimatorBackend()
	}

	a.logger.Debug("animator created",
		"backend", a.backendType.String(),
		"default_speed", a.defaultSpeed,
		"debug_checks", a.debugChecks)
	return a
}

func (a *animator) ComputePose(anim *model.Animation, absoluteTime float64, out []mgl32.Mat4) {
	if a.debugChecks {
		if err := anim.Validate(); err != nil {
			panic(err)
		}
		if math.IsNaN(absoluteTime) || math.IsInf(absoluteTime, 0) {
			panic(errors.Errorf("animation %q evaluated at non-finite time %v", anim.Name, absoluteTime))
		}
	}

	skeleton := anim.Skeleton
	if skeleton == nil {
		panic(errors.Wrapf(model.ErrNoSkeleton, "animation %q", anim.Name))
	}
	if n := skeleton.JointCount(); len(out) < n {
		panic(errors.Errorf("animation %q: output holds %d transforms, skeleton has %d joints", anim.Name, len(out), n))
	}

	time := a.LocalTime(anim, absoluteTime)
	kf := FindPoses(anim, time)
	a.backend.Evaluate(skeleton, kf, kf.Alpha(time), a.builder, out)
}

func (a *animator) ComputePoseAt(anim *model.Animation, absoluteTime float64) []mgl32.Mat4 {
	var n int
	if anim.Skeleton != nil {
		n = anim.Skeleton.JointCount()
	}
	out := make([]mgl32.Mat4, n)
	a.ComputePose(anim, absoluteTime, out)
	return out
}

func (a *animator) LocalTime(anim *model.Animation, absoluteTime float64) float32 {
	speed := float64(common.Coalesce(anim.Speed, a.defaultSpeed))
	duration := float64(anim.Duration)

	time := math.Mod(absoluteTime*speed, duration)
	if time < 0 {
		time += duration
	}
	// Narrowing can round a value just below the duration up to it.
	if t := float32(time); t < anim.Duration {
		return t
	}
	return 0
}

func (a *animator) BackendType() AnimatorBackendType {
	return a.backendType
}

func (a *animator) DefaultSpeed() float32 {
	return a.defaultSpeed
}

func (a *animator) Forget(skeleton *model.Skeleton) {
	if f, ok := a.backend.(interface{ Forget(*model.Skeleton) }); ok {
		f.Forget(skeleton)
	}
}
