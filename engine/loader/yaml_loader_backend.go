package loader

import (
	"io"
	"os"
	"strconv"

	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// yamlDocument is the on-disk layout of a hand-authored model.
//
//	name: arm
//	skeleton:
//	  joints:
//	    - name: shoulder
//	    - name: elbow
//	      parent: shoulder
//	animations:
//	  - name: wave
//	    duration: 2
//	    keyframes:
//	      - time: 0
//	        joints:
//	          - {}
//	          - rotation: [0, 0, 0, 1]
type yamlDocument struct {
	Name       string          `yaml:"name"`
	Skeleton   yamlSkeleton    `yaml:"skeleton"`
	Animations []yamlAnimation `yaml:"animations"`
}

type yamlSkeleton struct {
	Joints []yamlJoint `yaml:"joints"`
}

type yamlJoint struct {
	Name string `yaml:"name"`

	// Parent is a joint index or joint name. Omitted means root.
	Parent *yamlJointRef `yaml:"parent"`
}

// yamlJointRef is a scalar naming a joint either by index or by name.
type yamlJointRef struct {
	Index int
	Name  string
}

func (r *yamlJointRef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: joint reference must be a scalar", value.Line)
	}
	if value.ShortTag() == "!!int" {
		idx, err := strconv.Atoi(value.Value)
		if err != nil {
			return errors.Wrapf(err, "line %d: joint index", value.Line)
		}
		r.Index = idx
		return nil
	}
	r.Index = -1
	r.Name = value.Value
	return nil
}

type yamlAnimation struct {
	Name      string         `yaml:"name"`
	Duration  float32        `yaml:"duration"`
	Speed     float32        `yaml:"speed"`
	Keyframes []yamlKeyframe `yaml:"keyframes"`
}

type yamlKeyframe struct {
	Time float32 `yaml:"time"`

	// Joints are positional; a joint beyond the end of the list keeps the identity pose.
	Joints []yamlJointPose `yaml:"joints"`
}

type yamlJointPose struct {
	Translation *[3]float32 `yaml:"translation"`
	Rotation    *[4]float32 `yaml:"rotation"`
	Scale       *[3]float32 `yaml:"scale"`
}

// yamlLoaderBackendImpl is the implementation of yamlLoaderBackend.
type yamlLoaderBackendImpl struct{}

// yamlLoaderBackend is a loaderBackend implementation for hand-authored YAML models.
type yamlLoaderBackend interface {
	loaderBackend
}

var _ yamlLoaderBackend = &yamlLoaderBackendImpl{}

// newYAMLLoaderBackend creates a new YAML loader backend.
//
// Returns:
//   - yamlLoaderBackend: the loader backend for YAML files
func newYAMLLoaderBackend() yamlLoaderBackend {
	return &yamlLoaderBackendImpl{}
}

func (b *yamlLoaderBackendImpl) Load(path string) (model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	doc, err := decodeYAMLDocument(f)
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = modelNameFromPath(path)
	}
	return doc.toModel(path)
}

func (b *yamlLoaderBackendImpl) LoadReader(name string, r io.Reader) (model.Model, error) {
	doc, err := decodeYAMLDocument(r)
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = name
	}
	return doc.toModel("")
}

func decodeYAMLDocument(r io.Reader) (*yamlDocument, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc yamlDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode YAML model")
	}
	return &doc, nil
}

// toModel resolves joint references and builds the skeleton and animations.
func (d *yamlDocument) toModel(source string) (model.Model, error) {
	joints := d.Skeleton.Joints
	if len(joints) > model.MaxJoints {
		return nil, errors.Wrapf(model.ErrTooManyJoints, "%d joints", len(joints))
	}

	skeleton := &model.Skeleton{Joints: make([]model.Joint, len(joints))}
	for i, j := range joints {
		skeleton.Joints[i].Name = j.Name
	}
	for i, j := range joints {
		parent, err := d.resolveParent(skeleton, j.Parent)
		if err != nil {
			return nil, errors.Wrapf(err, "joint %d (%s)", i, j.Name)
		}
		skeleton.Joints[i].Parent = parent
	}

	animations := make([]*model.Animation, 0, len(d.Animations))
	for i := range d.Animations {
		anim, err := d.Animations[i].toAnimation(skeleton)
		if err != nil {
			return nil, errors.Wrapf(err, "animation %d (%s)", i, d.Animations[i].Name)
		}
		animations = append(animations, anim)
	}

	return model.NewModel(
		model.WithName(d.Name),
		model.WithSource(source),
		model.WithSkeleton(skeleton),
		model.WithAnimations(animations...),
	), nil
}

func (d *yamlDocument) resolveParent(skeleton *model.Skeleton, ref *yamlJointRef) (uint8, error) {
	if ref == nil {
		return model.RootParent, nil
	}

	idx := ref.Index
	if ref.Name != "" {
		idx = skeleton.JointIndex(ref.Name)
		if idx < 0 {
			return 0, errors.Wrapf(model.ErrParentRange, "unknown parent %q", ref.Name)
		}
	}
	if idx < 0 || idx >= skeleton.JointCount() {
		return 0, errors.Wrapf(model.ErrParentRange, "parent index %d", idx)
	}
	return uint8(idx), nil
}

func (a *yamlAnimation) toAnimation(skeleton *model.Skeleton) (*model.Animation, error) {
	jointCount := skeleton.JointCount()
	anim := &model.Animation{
		Name:       a.Name,
		Poses:      make([]model.SkeletonPose, len(a.Keyframes)),
		Timestamps: make([]float32, len(a.Keyframes)),
		Duration:   a.Duration,
		Speed:      a.Speed,
		Skeleton:   skeleton,
	}

	for k, kf := range a.Keyframes {
		if len(kf.Joints) > jointCount {
			return nil, errors.Wrapf(model.ErrPoseSize, "keyframe %d has %d joints, skeleton has %d", k, len(kf.Joints), jointCount)
		}
		pose := model.NewIdentitySkeletonPose(jointCount)
		for j, jp := range kf.Joints {
			pose.JointPoses[j] = jp.toJointPose()
		}
		anim.Poses[k] = pose
		anim.Timestamps[k] = kf.Time
	}

	if anim.Duration == 0 && len(anim.Timestamps) > 0 {
		anim.Duration = anim.Timestamps[len(anim.Timestamps)-1]
	}
	return anim, nil
}

func (p yamlJointPose) toJointPose() model.JointPose {
	pose := model.IdentityJointPose()
	if p.Translation != nil {
		pose.Translation = mgl32.Vec3(*p.Translation)
	}
	if p.Rotation != nil {
		r := *p.Rotation
		pose.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	}
	if p.Scale != nil {
		pose.Scale = mgl32.Vec3(*p.Scale)
	}
	return pose
}
