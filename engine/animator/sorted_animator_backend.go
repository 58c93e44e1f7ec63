package animator

import (
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// sortedAnimatorBackendImpl evaluates joints in one parent-first sweep.
// Parent-first orders are computed once per skeleton and cached; skeletons are treated as
// immutable once they have been evaluated.
type sortedAnimatorBackendImpl struct {
	mu     *sync.RWMutex
	orders map[*model.Skeleton][]uint8
	logger *slog.Logger
}

var _ AnimatorBackend = &sortedAnimatorBackendImpl{}

// newSortedAnimatorBackend creates the iterative, topologically sorted backend.
//
// Parameters:
//   - logger: receives a debug record whenever a new skeleton order is cached
//
// Returns:
//   - AnimatorBackend: the sorted backend
func newSortedAnimatorBackend(logger *slog.Logger) AnimatorBackend {
	return &sortedAnimatorBackendImpl{
		mu:     &sync.RWMutex{},
		orders: make(map[*model.Skeleton][]uint8),
		logger: logger,
	}
}

func (b *sortedAnimatorBackendImpl) Evaluate(skeleton *model.Skeleton, kf Keyframes, alpha float32, builder LocalTransformBuilder, out []mgl32.Mat4) {
	joints := skeleton.Joints
	for _, j := range b.order(skeleton) {
		t := &out[j]
		*t = builder.LocalTransform(&kf.Pose0.JointPoses[j], &kf.Pose1.JointPoses[j], alpha)
		if parent := joints[j].Parent; parent != model.RootParent {
			common.Mul4Into(t, &out[parent], t)
		}
	}
}

// order returns the cached parent-first joint order for skeleton, computing it on first use.
// A malformed skeleton is a programming error and panics.
func (b *sortedAnimatorBackendImpl) order(skeleton *model.Skeleton) []uint8 {
	b.mu.RLock()
	order, ok := b.orders[skeleton]
	b.mu.RUnlock()
	if ok && len(order) == skeleton.JointCount() {
		return order
	}

	order, err := skeleton.TopologicalOrder()
	if err != nil {
		panic(err)
	}

	b.mu.Lock()
	b.orders[skeleton] = order
	b.mu.Unlock()

	b.logger.Debug("cached skeleton joint order", "joints", len(order))
	return order
}

// Forget drops the cached order of skeleton, for callers that edit a skeleton in place.
func (b *sortedAnimatorBackendImpl) Forget(skeleton *model.Skeleton) {
	b.mu.Lock()
	delete(b.orders, skeleton)
	b.mu.Unlock()
}
