package animator

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

const matTolerance = 1e-4

var backendTypes = []AnimatorBackendType{BackendTypeMemoized, BackendTypeSorted}

// chainSkeleton returns n joints where joint i is parented to joint i-1.
func chainSkeleton(n int) *model.Skeleton {
	s := &model.Skeleton{Joints: make([]model.Joint, n)}
	for i := range s.Joints {
		s.Joints[i].Parent = uint8(i - 1)
	}
	s.Joints[0].Parent = model.RootParent
	return s
}

// identityAnimation returns an animation over skeleton whose keyframes are all identity poses.
func identityAnimation(skeleton *model.Skeleton, timestamps []float32, duration, speed float32) *model.Animation {
	poses := make([]model.SkeletonPose, len(timestamps))
	for i := range poses {
		poses[i] = model.NewIdentitySkeletonPose(skeleton.JointCount())
	}
	return &model.Animation{
		Name:       "test",
		Poses:      poses,
		Timestamps: timestamps,
		Duration:   duration,
		Speed:      speed,
		Skeleton:   skeleton,
	}
}

func translated(x, y, z float32) model.JointPose {
	p := model.IdentityJointPose()
	p.Translation = mgl32.Vec3{x, y, z}
	return p
}

func assertMatEqual(t *testing.T, expected, actual mgl32.Mat4, msgAndArgs ...any) {
	t.Helper()
	assert.InDeltaSlicef(t, expected[:], actual[:], matTolerance,
		"expected\n%v\ngot\n%v\n%v", expected, actual, msgAndArgs)
}
