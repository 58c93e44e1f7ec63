package scene

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-pose/engine/animator"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/Carmen-Shannon/oxy-pose/engine/profiler"
	"github.com/Carmen-Shannon/oxy-pose/internal/logging"
)

// slideAnimation moves a two-joint chain from x=0 to x=10 over 10 ticks at 1 tick per second.
func slideAnimation() *model.Animation {
	skel := &model.Skeleton{Joints: []model.Joint{
		{Name: "root", Parent: model.RootParent},
		{Name: "tip", Parent: 0},
	}}
	start := model.NewIdentitySkeletonPose(2)
	end := model.NewIdentitySkeletonPose(2)
	end.JointPoses[0].Translation = mgl32.Vec3{10, 0, 0}
	start.JointPoses[1].Translation = mgl32.Vec3{0, 1, 0}
	end.JointPoses[1].Translation = mgl32.Vec3{0, 1, 0}

	return &model.Animation{
		Name:       "slide",
		Poses:      []model.SkeletonPose{start, end},
		Timestamps: []float32{0, 10},
		Duration:   20,
		Speed:      1,
		Skeleton:   skel,
	}
}

func newTestScene(options ...SceneBuilderOption) Scene {
	base := []SceneBuilderOption{WithLogger(logging.Discard()), WithComputeWorkers(2)}
	return NewScene("test", append(base, options...)...)
}

func rootX(t *testing.T, s Scene, id InstanceID) float32 {
	t.Helper()
	out, ok := s.Transforms(id)
	require.True(t, ok)
	return out[0].Col(3).X()
}

func TestUpdateMatchesDirectEvaluation(t *testing.T) {
	anim := slideAnimation()
	s := newTestScene()
	id := s.AddInstance(anim, 0)

	assert.Equal(t, 1, s.Update(4))

	got, ok := s.Transforms(id)
	require.True(t, ok)
	want := animator.NewAnimator(animator.BackendTypeMemoized).ComputePoseAt(anim, 4)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDeltaSlice(t, want[i][:], got[i][:], 1e-5, "joint %d", i)
	}
	assert.InDelta(t, 4, got[0].Col(3).X(), 1e-5)
}

func TestInstancesRunIndependently(t *testing.T) {
	anim := slideAnimation()
	s := newTestScene()

	a := s.AddInstance(anim, 0)
	b := s.AddInstance(anim, 2)
	c := s.AddInstance(anim, 0)
	require.True(t, s.SetTimeScale(c, 0.5))
	require.Equal(t, 3, s.InstanceCount())

	assert.Equal(t, 3, s.Update(6))
	assert.InDelta(t, 6, rootX(t, s, a), 1e-5)
	assert.InDelta(t, 4, rootX(t, s, b), 1e-5)
	assert.InDelta(t, 3, rootX(t, s, c), 1e-5)
}

func TestRemoveInstance(t *testing.T) {
	s := newTestScene()
	id := s.AddInstance(slideAnimation(), 0)

	assert.True(t, s.RemoveInstance(id))
	assert.False(t, s.RemoveInstance(id))
	assert.False(t, s.SetTimeScale(id, 2))
	_, ok := s.Transforms(id)
	assert.False(t, ok)
	assert.Zero(t, s.Update(1))
}

func TestTransformsReturnsCopy(t *testing.T) {
	s := newTestScene()
	id := s.AddInstance(slideAnimation(), 0)
	s.Update(1)

	out, _ := s.Transforms(id)
	out[0] = mgl32.Mat4{}
	assert.InDelta(t, 1, rootX(t, s, id), 1e-5)
}

func TestAddInstanceRequiresSkeleton(t *testing.T) {
	s := newTestScene()
	assert.Panics(t, func() { s.AddInstance(&model.Animation{}, 0) })
	assert.Panics(t, func() { s.AddInstance(nil, 0) })
}

func TestOptions(t *testing.T) {
	a := animator.NewAnimator(animator.BackendTypeSorted)
	s := newTestScene(WithAnimator(a), WithQueueSize(0), WithIdleTimeout(0), WithComputeWorkers(0))

	impl := s.(*scene)
	assert.Same(t, a, s.Animator())
	assert.Equal(t, "test", s.Name())
	assert.Equal(t, 1, impl.queueSize)
	assert.Equal(t, 1, impl.computeWorkers)
	assert.Positive(t, impl.idleTimeout)
}

func TestUpdateTicksProfiler(t *testing.T) {
	p := profiler.NewProfiler(profiler.WithLogger(logging.Discard()))
	s := newTestScene(WithProfiler(p))
	s.AddInstance(slideAnimation(), 0)
	s.AddInstance(slideAnimation(), 0)

	assert.Equal(t, 2, s.Update(0.5))
}

func TestConcurrentReadersDuringUpdates(t *testing.T) {
	s := newTestScene(WithComputeWorkers(4))
	ids := make([]InstanceID, 16)
	for i := range ids {
		ids[i] = s.AddInstance(slideAnimation(), float64(i))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for frame := 0; frame < 50; frame++ {
			s.Update(float64(frame) * 0.1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, ok := s.Transforms(ids[i%len(ids)])
			assert.True(t, ok)
		}
	}()
	wg.Wait()
}

func BenchmarkUpdate(b *testing.B) {
	s := NewScene("bench", WithLogger(logging.Discard()))
	for i := 0; i < 64; i++ {
		s.AddInstance(slideAnimation(), float64(i))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Update(float64(i) / 60)
	}
}
