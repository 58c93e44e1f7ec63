package animator

import (
	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// LocalTransformBuilder reconstructs a joint's local transform from two bracketing joint poses.
type LocalTransformBuilder interface {
	// LocalTransform interpolates p0 towards p1 by alpha and returns the local matrix T · R · S.
	//
	// Parameters:
	//   - p0: the joint pose at the earlier keyframe
	//   - p1: the joint pose at the later keyframe
	//   - alpha: the blend weight of p1, in [0, 1]
	//
	// Returns:
	//   - mgl32.Mat4: the joint's transform relative to its parent
	LocalTransform(p0, p1 *model.JointPose, alpha float32) mgl32.Mat4
}

// LocalTransformFunc adapts an ordinary function to the LocalTransformBuilder interface.
type LocalTransformFunc func(p0, p1 *model.JointPose, alpha float32) mgl32.Mat4

// LocalTransform calls f(p0, p1, alpha).
func (f LocalTransformFunc) LocalTransform(p0, p1 *model.JointPose, alpha float32) mgl32.Mat4 {
	return f(p0, p1, alpha)
}

// interpolatingBuilder is the default LocalTransformBuilder.
// Translation and scale interpolate linearly, rotation by shortest-arc slerp.
type interpolatingBuilder struct{}

var _ LocalTransformBuilder = interpolatingBuilder{}

// NewLocalTransformBuilder returns the default interpolating LocalTransformBuilder.
//
// Returns:
//   - LocalTransformBuilder: a stateless builder, safe for concurrent use
func NewLocalTransformBuilder() LocalTransformBuilder {
	return interpolatingBuilder{}
}

func (interpolatingBuilder) LocalTransform(p0, p1 *model.JointPose, alpha float32) mgl32.Mat4 {
	p := InterpolateJointPose(p0, p1, alpha)
	return common.ComposeTRS(p.Translation, p.Rotation, p.Scale)
}

// InterpolateJointPose blends two joint poses component-wise.
// The returned rotation is unit length.
//
// Parameters:
//   - p0: the pose at alpha = 0
//   - p1: the pose at alpha = 1
//   - alpha: the blend weight of p1, in [0, 1]
//
// Returns:
//   - model.JointPose: the interpolated pose
func InterpolateJointPose(p0, p1 *model.JointPose, alpha float32) model.JointPose {
	return model.JointPose{
		Translation: common.LerpVec3(p0.Translation, p1.Translation, alpha),
		Rotation:    common.SlerpShortest(p0.Rotation, p1.Rotation, alpha),
		Scale:       common.LerpVec3(p0.Scale, p1.Scale, alpha),
	}
}
