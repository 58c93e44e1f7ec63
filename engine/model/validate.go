package model

import (
	"math"

	"github.com/pkg/errors"
)

// Structural errors reported by Validate. They are wrapped with context; match them with errors.Is.
var (
	ErrNoSkeleton     = errors.New("animation has no skeleton")
	ErrTooManyJoints  = errors.New("skeleton exceeds joint limit")
	ErrParentRange    = errors.New("joint parent out of range")
	ErrCycle          = errors.New("skeleton hierarchy contains a cycle")
	ErrNoPoses        = errors.New("animation has no poses")
	ErrTooFewPoses    = errors.New("animation needs at least two poses")
	ErrTimestampCount = errors.New("timestamp count does not match pose count")
	ErrTimestampOrder = errors.New("timestamps are not non-decreasing")
	ErrBadDuration    = errors.New("animation duration must be positive")
	ErrBadSpeed       = errors.New("animation speed must be finite and non-negative")
	ErrPoseSize       = errors.New("skeleton pose does not match joint count")
)

// Validate checks the skeleton's structural invariants: the joint limit, parent ranges and acyclicity.
//
// Returns:
//   - error: a wrapped structural error, or nil if the skeleton is well formed
func (s *Skeleton) Validate() error {
	_, err := s.TopologicalOrder()
	return err
}

// TopologicalOrder returns every joint id ordered so that parents precede their children.
// Roots keep their relative id order. Any structural defect is returned as an error.
//
// Returns:
//   - []uint8: joint ids in parent-first order
//   - error: a wrapped structural error if the skeleton is malformed
func (s *Skeleton) TopologicalOrder() ([]uint8, error) {
	n := len(s.Joints)
	if n > MaxJoints {
		return nil, errors.Wrapf(ErrTooManyJoints, "%d joints, limit %d", n, MaxJoints)
	}

	children := make([][]uint8, n)
	order := make([]uint8, 0, n)
	for i, j := range s.Joints {
		if j.IsRoot() {
			order = append(order, uint8(i))
			continue
		}
		if int(j.Parent) >= n {
			return nil, errors.Wrapf(ErrParentRange, "joint %d (%q) has parent %d, joint count %d", i, j.Name, j.Parent, n)
		}
		children[j.Parent] = append(children[j.Parent], uint8(i))
	}

	// Breadth-first from the roots; joints never reached sit on a cycle.
	for head := 0; head < len(order); head++ {
		order = append(order, children[order[head]]...)
	}
	if len(order) != n {
		reached := make([]bool, n)
		for _, id := range order {
			reached[id] = true
		}
		for i := range reached {
			if !reached[i] {
				return nil, errors.Wrapf(ErrCycle, "joint %d (%q) is not reachable from a root", i, s.Joints[i].Name)
			}
		}
	}
	return order, nil
}

// Validate checks every invariant the pose evaluator relies on.
// Loaders call it before handing an animation out; the evaluator itself only calls it in debug mode.
//
// Returns:
//   - error: a wrapped structural error, or nil if the animation is well formed
func (a *Animation) Validate() error {
	if a.Skeleton == nil {
		return errors.Wrapf(ErrNoSkeleton, "animation %q", a.Name)
	}
	if err := a.Skeleton.Validate(); err != nil {
		return errors.Wrapf(err, "animation %q", a.Name)
	}

	switch n := len(a.Poses); {
	case n == 0:
		return errors.Wrapf(ErrNoPoses, "animation %q", a.Name)
	case n < 2:
		return errors.Wrapf(ErrTooFewPoses, "animation %q has %d", a.Name, n)
	}
	if len(a.Timestamps) != len(a.Poses) {
		return errors.Wrapf(ErrTimestampCount, "animation %q: %d timestamps, %d poses", a.Name, len(a.Timestamps), len(a.Poses))
	}
	for i, ts := range a.Timestamps {
		if math.IsNaN(float64(ts)) || math.IsInf(float64(ts), 0) {
			return errors.Wrapf(ErrTimestampOrder, "animation %q: timestamp %d is %g", a.Name, i, ts)
		}
	}
	for i := 1; i < len(a.Timestamps); i++ {
		if a.Timestamps[i] < a.Timestamps[i-1] {
			return errors.Wrapf(ErrTimestampOrder, "animation %q: timestamp %d (%g) precedes %d (%g)",
				a.Name, i, a.Timestamps[i], i-1, a.Timestamps[i-1])
		}
	}

	if !(a.Duration > 0) || math.IsInf(float64(a.Duration), 0) {
		return errors.Wrapf(ErrBadDuration, "animation %q has duration %g", a.Name, a.Duration)
	}
	if a.Speed < 0 || math.IsNaN(float64(a.Speed)) || math.IsInf(float64(a.Speed), 0) {
		return errors.Wrapf(ErrBadSpeed, "animation %q has speed %g", a.Name, a.Speed)
	}

	jointCount := a.Skeleton.JointCount()
	for i, p := range a.Poses {
		if len(p.JointPoses) != jointCount {
			return errors.Wrapf(ErrPoseSize, "animation %q: pose %d has %d joint poses, skeleton has %d joints",
				a.Name, i, len(p.JointPoses), jointCount)
		}
	}
	return nil
}
