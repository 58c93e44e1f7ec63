package animator

import (
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// AnimatorBackendType identifies the joint traversal strategy used by an Animator.
type AnimatorBackendType int

const (
	// BackendTypeMemoized walks joints in id order and recurses into each parent before
	// finalizing a child, memoizing finished joints so every ancestor chain is built once.
	BackendTypeMemoized AnimatorBackendType = iota

	// BackendTypeSorted sweeps joints once in a cached parent-first order, composing each
	// local transform with its already finished parent.
	BackendTypeSorted
)

// String returns the configuration name of the backend type.
func (t AnimatorBackendType) String() string {
	switch t {
	case BackendTypeMemoized:
		return "memoized"
	case BackendTypeSorted:
		return "sorted"
	}
	return "unknown"
}

// ParseBackendType maps a configuration name to a backend type.
//
// Parameters:
//   - name: "memoized" or "sorted"; empty selects memoized
//
// Returns:
//   - AnimatorBackendType: the matching backend type
//   - bool: false if the name is not recognized
func ParseBackendType(name string) (AnimatorBackendType, bool) {
	switch name {
	case "", "memoized":
		return BackendTypeMemoized, true
	case "sorted":
		return BackendTypeSorted, true
	}
	return BackendTypeMemoized, false
}

// AnimatorBackend is the interface every joint traversal strategy implements.
// Implementations must call the builder exactly once per joint and leave out[j] holding the
// world transform of joint j. They must be safe for concurrent calls on disjoint outputs.
type AnimatorBackend interface {
	// Evaluate writes the world transform of every joint in skeleton into out.
	//
	// Parameters:
	//   - skeleton: the joint hierarchy; len(out) must be at least its joint count
	//   - kf: the bracketing keyframes
	//   - alpha: the blend weight of kf.Pose1
	//   - builder: the local transform builder
	//   - out: the caller-owned output transforms
	Evaluate(skeleton *model.Skeleton, kf Keyframes, alpha float32, builder LocalTransformBuilder, out []mgl32.Mat4)
}
