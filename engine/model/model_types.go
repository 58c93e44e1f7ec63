package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// RootParent is the parent id carried by joints that have no parent.
const RootParent uint8 = 255

// MaxJoints is the exclusive upper bound on the number of joints in a skeleton.
// Joint ids must stay below the RootParent sentinel.
const MaxJoints = int(RootParent)

// DefaultSpeed is the playback rate, in ticks per second, used when an animation leaves Speed at zero.
const DefaultSpeed float32 = 25

// --- Skeleton Types ---

// Joint represents a single node in a skeleton hierarchy.
type Joint struct {
	// Name is the joint's identifier (for debugging and lookups).
	Name string

	// Parent is the id of the parent joint, or RootParent for roots.
	Parent uint8
}

// IsRoot reports whether the joint has no parent.
func (j Joint) IsRoot() bool {
	return j.Parent == RootParent
}

// Skeleton is an ordered set of joints indexed by joint id.
// The parent relation forms a forest; JointCount is authoritative for every parallel array.
type Skeleton struct {
	// Joints holds every joint; a joint's id is its index.
	Joints []Joint
}

// JointCount returns the number of joints in the skeleton.
//
// Returns:
//   - int: the joint count
func (s *Skeleton) JointCount() int {
	return len(s.Joints)
}

// Roots returns the ids of every joint without a parent, in id order.
//
// Returns:
//   - []uint8: the root joint ids
func (s *Skeleton) Roots() []uint8 {
	var roots []uint8
	for i, j := range s.Joints {
		if j.IsRoot() {
			roots = append(roots, uint8(i))
		}
	}
	return roots
}

// JointIndex returns the id of the first joint with the given name, or -1 if none matches.
//
// Parameters:
//   - name: the joint name to search for
//
// Returns:
//   - int: the joint id, or -1 if not found
func (s *Skeleton) JointIndex(name string) int {
	for i, j := range s.Joints {
		if j.Name == name {
			return i
		}
	}
	return -1
}

// --- Pose Types ---

// JointPose is the sampled local transform parameters of one joint at one keyframe.
type JointPose struct {
	// Translation is the position offset relative to the parent joint.
	Translation mgl32.Vec3

	// Rotation is the orientation relative to the parent joint. It does not need to be unit length.
	Rotation mgl32.Quat

	// Scale is the scale factor along each local axis. Zero collapses the subtree.
	Scale mgl32.Vec3
}

// IdentityJointPose returns a pose with no translation, no rotation and unit scale.
func IdentityJointPose() JointPose {
	return JointPose{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// SkeletonPose is a snapshot of every joint at one keyframe, parallel to Skeleton.Joints.
type SkeletonPose struct {
	JointPoses []JointPose
}

// NewIdentitySkeletonPose returns a skeleton pose of jointCount identity joint poses.
//
// Parameters:
//   - jointCount: the number of joints in the pose
//
// Returns:
//   - SkeletonPose: the identity pose
func NewIdentitySkeletonPose(jointCount int) SkeletonPose {
	poses := make([]JointPose, jointCount)
	for i := range poses {
		poses[i] = IdentityJointPose()
	}
	return SkeletonPose{JointPoses: poses}
}

// --- Animation Types ---

// Animation is a timeline of skeleton poses played against a skeleton.
// Poses and Timestamps are parallel; timestamps are expressed in ticks.
type Animation struct {
	// Name is the animation identifier.
	Name string

	// Poses are the keyframe snapshots, one per timestamp.
	Poses []SkeletonPose

	// Timestamps are the keyframe times in ticks, monotonically non-decreasing.
	Timestamps []float32

	// Duration is the length of one loop in ticks.
	Duration float32

	// Speed is the playback rate in ticks per second. Zero selects the evaluator's default.
	Speed float32

	// Skeleton is the joint hierarchy the poses are defined against.
	Skeleton *Skeleton
}

// PoseCount returns the number of keyframes in the animation.
//
// Returns:
//   - int: the keyframe count
func (a *Animation) PoseCount() int {
	return len(a.Poses)
}
