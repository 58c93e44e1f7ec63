package scene

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pose/engine/animator"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/Carmen-Shannon/oxy-pose/engine/profiler"
	"github.com/go-gl/mathgl/mgl32"
)

// InstanceID identifies an animation instance within a Scene. Zero is never issued.
type InstanceID uint64

// instance is one animation played from a start time, with its own output buffer.
type instance struct {
	anim      *model.Animation
	startTime float64
	timeScale float64
	out       []mgl32.Mat4
}

// localTime maps scene time to the instance's wall-clock time.
func (i *instance) localTime(absoluteTime float64) float64 {
	return (absoluteTime - i.startTime) * i.timeScale
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu   *sync.RWMutex
	name string

	animator  animator.Animator
	instances map[InstanceID]*instance
	nextID    InstanceID

	profiler *profiler.Profiler
	logger   *slog.Logger

	// computePool evaluates instances in parallel. Workers persist across frames,
	// avoiding per-frame goroutine spawn/teardown overhead.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
	queueSize      int
	idleTimeout    time.Duration
}

// Scene is a set of animation instances evaluated together each frame.
// Every instance owns its output, so one Update fans the instances out across a worker pool
// and waits for all of them before returning.
type Scene interface {
	// Name returns the name of the scene.
	//
	// Returns:
	//   - string: the scene name
	Name() string

	// Animator returns the evaluator shared by every instance.
	//
	// Returns:
	//   - animator.Animator: the animator
	Animator() animator.Animator

	// AddInstance starts playing anim at startTime (scene seconds) with time scale 1.
	// The animation must be valid; it is evaluated as-is every Update.
	//
	// Parameters:
	//   - anim: the animation to play
	//   - startTime: the scene time at which local time is zero
	//
	// Returns:
	//   - InstanceID: the id of the new instance
	AddInstance(anim *model.Animation, startTime float64) InstanceID

	// RemoveInstance stops and forgets an instance.
	//
	// Parameters:
	//   - id: the instance to remove
	//
	// Returns:
	//   - bool: true if the instance existed
	RemoveInstance(id InstanceID) bool

	// SetTimeScale sets the playback multiplier of an instance. Negative values play backwards.
	//
	// Parameters:
	//   - id: the instance to modify
	//   - scale: the multiplier applied to elapsed scene time
	//
	// Returns:
	//   - bool: true if the instance existed
	SetTimeScale(id InstanceID, scale float64) bool

	// Update evaluates every instance at absoluteTime and ticks the profiler, if any.
	//
	// Parameters:
	//   - absoluteTime: the scene time in seconds
	//
	// Returns:
	//   - int: the number of poses evaluated
	Update(absoluteTime float64) int

	// Transforms returns a copy of the world transforms computed for an instance by the last Update.
	// Before the first Update every transform is the zero matrix.
	//
	// Parameters:
	//   - id: the instance to read
	//
	// Returns:
	//   - []mgl32.Mat4: one world transform per joint
	//   - bool: false if the instance does not exist
	Transforms(id InstanceID) ([]mgl32.Mat4, bool)

	// InstanceCount returns the number of live instances.
	//
	// Returns:
	//   - int: the instance count
	InstanceCount() int
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new Scene. Without WithAnimator, instances are evaluated by a memoized animator
// using the default speed.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:             &sync.RWMutex{},
		name:           name,
		instances:      make(map[InstanceID]*instance),
		nextID:         1,
		logger:         slog.Default(),
		computeWorkers: max(runtime.NumCPU()-1, 1),
		queueSize:      256,
		idleTimeout:    time.Second,
	}

	for _, option := range options {
		option(s)
	}

	if s.animator == nil {
		s.animator = animator.NewAnimator(animator.BackendTypeMemoized, animator.WithLogger(s.logger))
	}

	// Initialize the compute pool after options so WithComputeWorkers can override the default.
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, s.queueSize, s.idleTimeout)

	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Animator() animator.Animator {
	return s.animator
}

func (s *scene) AddInstance(anim *model.Animation, startTime float64) InstanceID {
	if anim == nil || anim.Skeleton == nil {
		panic("scene: AddInstance requires an animation with a skeleton")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.instances[id] = &instance{
		anim:      anim,
		startTime: startTime,
		timeScale: 1,
		out:       make([]mgl32.Mat4, anim.Skeleton.JointCount()),
	}
	s.logger.Debug("instance added", "scene", s.name, "id", id, "animation", anim.Name)
	return id
}

func (s *scene) RemoveInstance(id InstanceID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[id]; !ok {
		return false
	}
	delete(s.instances, id)
	return true
}

func (s *scene) SetTimeScale(id InstanceID, scale float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok {
		return false
	}
	inst.timeScale = scale
	return true
}

func (s *scene) Update(absoluteTime float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A WaitGroup provides the per-frame barrier; pool.Wait() blocks until workers
	// idle-exit, which is unsuitable for frame-rate workloads.
	var wg sync.WaitGroup
	taskID := 0
	for _, inst := range s.instances {
		wg.Add(1)
		instCap := inst
		id := taskID
		taskID++
		s.computePool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				s.animator.ComputePose(instCap.anim, instCap.localTime(absoluteTime), instCap.out)
				return nil, nil
			},
		})
	}
	wg.Wait()

	if s.profiler != nil {
		s.profiler.Tick(taskID)
	}
	return taskID
}

func (s *scene) Transforms(id InstanceID) ([]mgl32.Mat4, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, false
	}
	out := make([]mgl32.Mat4, len(inst.out))
	copy(out, inst.out)
	return out, true
}

func (s *scene) InstanceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instances)
}
