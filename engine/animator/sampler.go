package animator

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/pkg/errors"
)

// Keyframes is the pair of adjacent skeleton poses bracketing an animation-local time.
type Keyframes struct {
	// Index is the index of Pose0 in the animation; Pose1 sits at Index+1.
	Index int

	// Pose0 and Pose1 are the bracketing skeleton poses.
	Pose0, Pose1 *model.SkeletonPose

	// T0 and T1 are the timestamps of Pose0 and Pose1 in ticks.
	T0, T1 float32
}

// Alpha returns the interpolation parameter of time between T0 and T1, clamped to [0, 1].
// A degenerate interval (T1 == T0) yields 0.
//
// Parameters:
//   - time: the animation-local time in ticks
//
// Returns:
//   - float32: the blend weight of Pose1
func (k Keyframes) Alpha(time float32) float32 {
	span := k.T1 - k.T0
	if !(span > 0) {
		return 0
	}
	return common.Clamp01((time - k.T0) / span)
}

// FindPoses returns the two keyframes bracketing time.
// It selects the largest index i in [0, PoseCount-2] whose timestamp is at or before time,
// so an exact keyframe hit becomes Pose0. A time before every timestamp clamps to i = 0.
//
// Parameters:
//   - anim: the animation to sample; it must hold at least two poses
//   - time: the animation-local time in ticks, already wrapped into [0, Duration)
//
// Returns:
//   - Keyframes: the bracketing keyframe pair
func FindPoses(anim *model.Animation, time float32) Keyframes {
	n := anim.PoseCount()
	if n < 2 {
		panic(errors.Wrapf(model.ErrTooFewPoses, "animation %q has %d", anim.Name, n))
	}

	// First candidate strictly after time; the one before it is the last keyframe passed.
	candidates := anim.Timestamps[:n-1]
	k := sort.Search(len(candidates), func(k int) bool {
		return candidates[k] > time
	})
	i := max(k-1, 0)

	return Keyframes{
		Index: i,
		Pose0: &anim.Poses[i],
		Pose1: &anim.Poses[i+1],
		T0:    anim.Timestamps[i],
		T1:    anim.Timestamps[i+1],
	}
}
