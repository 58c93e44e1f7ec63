package animator

import (
	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// memoizedAnimatorBackendImpl evaluates joints by recursing into parents on demand.
// It is stateless; the memo vector lives on the stack of each Evaluate call.
type memoizedAnimatorBackendImpl struct{}

var _ AnimatorBackend = memoizedAnimatorBackendImpl{}

// newMemoizedAnimatorBackend creates the recursive, memoizing backend.
//
// Returns:
//   - AnimatorBackend: the memoized backend
func newMemoizedAnimatorBackend() AnimatorBackend {
	return memoizedAnimatorBackendImpl{}
}

// memoWalk carries the per-call state of one memoized evaluation.
type memoWalk struct {
	joints   []model.Joint
	kf       Keyframes
	alpha    float32
	builder  LocalTransformBuilder
	out      []mgl32.Mat4
	computed *[model.MaxJoints]bool
}

func (memoizedAnimatorBackendImpl) Evaluate(skeleton *model.Skeleton, kf Keyframes, alpha float32, builder LocalTransformBuilder, out []mgl32.Mat4) {
	var computed [model.MaxJoints]bool
	w := memoWalk{
		joints:   skeleton.Joints,
		kf:       kf,
		alpha:    alpha,
		builder:  builder,
		out:      out,
		computed: &computed,
	}
	for j := range w.joints {
		if !computed[j] {
			w.visit(uint8(j), 0)
		}
	}
}

// visit finalizes joint j, finalizing its ancestors first, and returns its world transform.
// depth counts the ancestors already on the call stack; a well formed skeleton never
// exceeds MaxJoints, so going past it means the parent chain loops.
func (w *memoWalk) visit(j uint8, depth int) *mgl32.Mat4 {
	t := &w.out[j]
	if w.computed[j] {
		return t
	}
	if depth >= model.MaxJoints {
		panic(errors.Wrapf(model.ErrCycle, "joint %d", j))
	}

	*t = w.builder.LocalTransform(&w.kf.Pose0.JointPoses[j], &w.kf.Pose1.JointPoses[j], w.alpha)
	if parent := w.joints[j].Parent; parent != model.RootParent {
		common.Mul4Into(t, w.visit(parent, depth+1), t)
	}

	w.computed[j] = true
	return t
}
