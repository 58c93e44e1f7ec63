package model

// model is the implementation of the Model interface.
type model struct {
	name       string
	source     string
	skeleton   *Skeleton
	animations []*Animation
}

// Model defines the interface for a loaded rigged asset.
// A Model is a read-only container holding a skeleton and the animations defined against it.
// It is produced by the Loader after importing a model file; the pose evaluator reads from it
// but never mutates it.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Source retrieves the path or stream name the model was loaded from.
	//
	// Returns:
	//   - string: the source identifier, empty for hand-built models
	Source() string

	// Skeleton retrieves the joint hierarchy shared by every animation of this model.
	//
	// Returns:
	//   - *Skeleton: the skeleton or nil
	Skeleton() *Skeleton

	// Animations retrieves all animations bundled with this model.
	//
	// Returns:
	//   - []*Animation: the animations
	Animations() []*Animation

	// Animation retrieves an animation by name.
	//
	// Parameters:
	//   - name: the animation name to search for
	//
	// Returns:
	//   - *Animation: the animation, or nil if not found
	Animation(name string) *Animation

	// AnimationCount returns the number of available animations.
	//
	// Returns:
	//   - int: the animation count
	AnimationCount() int

	// AnimationNames returns the names of all animations.
	//
	// Returns:
	//   - []string: the animation names
	AnimationNames() []string

	// GetAnimationIndex returns the index of an animation by name, or -1 if not found.
	//
	// Parameters:
	//   - name: the animation name to search for
	//
	// Returns:
	//   - int: the animation index, or -1 if not found
	GetAnimationIndex(name string) int
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
// Animations without a skeleton are bound to the Model's skeleton.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{}
	for _, opt := range options {
		opt(m)
	}
	for _, a := range m.animations {
		if a.Skeleton == nil {
			a.Skeleton = m.skeleton
		}
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Source() string {
	return m.source
}

func (m *model) Skeleton() *Skeleton {
	return m.skeleton
}

func (m *model) Animations() []*Animation {
	return m.animations
}

func (m *model) Animation(name string) *Animation {
	if i := m.GetAnimationIndex(name); i >= 0 {
		return m.animations[i]
	}
	return nil
}

func (m *model) AnimationCount() int {
	return len(m.animations)
}

func (m *model) AnimationNames() []string {
	names := make([]string, len(m.animations))
	for i, anim := range m.animations {
		names[i] = anim.Name
	}
	return names
}

func (m *model) GetAnimationIndex(name string) int {
	for i, anim := range m.animations {
		if anim.Name == name {
			return i
		}
	}
	return -1
}
