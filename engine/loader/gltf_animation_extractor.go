package loader

import (
	"fmt"
	"slices"
	"sort"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfTrack is one decoded animation channel: keyframe times and values for a single
// joint property. Vector values use the first three components.
type gltfTrack struct {
	times         []float32
	values        []mgl32.Vec4
	interpolation gltf.Interpolation
}

// gltfJointTracks groups the tracks that drive one joint.
type gltfJointTracks struct {
	translation *gltfTrack
	rotation    *gltfTrack
	scale       *gltfTrack
}

// extractGLTFAnimation resamples a glTF animation onto the union of its channel timestamps.
// Joints without a channel keep their rest pose; channels targeting nodes outside the
// skeleton and morph weight channels are ignored.
//
// Parameters:
//   - doc: the decoded glTF document
//   - animIndex: the index of the animation in the document
//   - skel: the skeleton extracted from the document's skin
//
// Returns:
//   - *model.Animation: the resampled animation in seconds (Speed 1), or nil if no channel targets the skeleton
//   - error: error if a channel cannot be decoded
func extractGLTFAnimation(doc *gltf.Document, animIndex int, skel *gltfSkeleton) (*model.Animation, error) {
	anim := doc.Animations[animIndex]

	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", animIndex)
	}

	tracks := make(map[uint8]*gltfJointTracks)
	var times []float32

	for i, ch := range anim.Channels {
		nodeIndex, ok := gltfIndex(ch.Target.Node)
		if !ok {
			continue
		}
		joint, ok := skel.nodeToJoint[nodeIndex]
		if !ok {
			continue
		}

		samplerIndex, ok := gltfIndex(ch.Sampler)
		if !ok || samplerIndex >= len(anim.Samplers) {
			return nil, errors.Errorf("animation %q channel %d: invalid sampler", name, i)
		}

		var slot **gltfTrack
		jt := tracks[joint]
		if jt == nil {
			jt = &gltfJointTracks{}
		}
		switch ch.Target.Path {
		case gltf.TRSTranslation:
			slot = &jt.translation
		case gltf.TRSRotation:
			slot = &jt.rotation
		case gltf.TRSScale:
			slot = &jt.scale
		default:
			continue
		}

		track, err := readGLTFTrack(doc, anim.Samplers[samplerIndex])
		if err != nil {
			return nil, errors.Wrapf(err, "animation %q channel %d", name, i)
		}
		*slot = track
		tracks[joint] = jt
		times = append(times, track.times...)
	}

	if len(tracks) == 0 {
		return nil, nil
	}

	slices.Sort(times)
	times = slices.Compact(times)
	if len(times) == 1 {
		times = append(times, times[0]+1)
	}

	jointCount := skel.skeleton.JointCount()
	poses := make([]model.SkeletonPose, len(times))
	for k, t := range times {
		pose := model.SkeletonPose{JointPoses: make([]model.JointPose, jointCount)}
		copy(pose.JointPoses, skel.rest)
		for joint, jt := range tracks {
			jp := &pose.JointPoses[joint]
			if jt.translation != nil {
				jp.Translation = jt.translation.sample(t, false).Vec3()
			}
			if jt.rotation != nil {
				v := jt.rotation.sample(t, true)
				jp.Rotation = mgl32.Quat{W: v[3], V: v.Vec3()}
			}
			if jt.scale != nil {
				jp.Scale = jt.scale.sample(t, false).Vec3()
			}
		}
		poses[k] = pose
	}

	return &model.Animation{
		Name:       name,
		Poses:      poses,
		Timestamps: times,
		Duration:   times[len(times)-1],
		Speed:      1,
		Skeleton:   skel.skeleton,
	}, nil
}

// readGLTFTrack decodes a sampler's input times and output values.
// CUBICSPLINE outputs carry an in-tangent, value and out-tangent per key; only the values are kept.
func readGLTFTrack(doc *gltf.Document, sampler *gltf.AnimationSampler) (*gltfTrack, error) {
	inputIndex, ok := gltfIndex(sampler.Input)
	if !ok || inputIndex >= len(doc.Accessors) {
		return nil, errors.New("sampler input accessor out of range")
	}
	outputIndex, ok := gltfIndex(sampler.Output)
	if !ok || outputIndex >= len(doc.Accessors) {
		return nil, errors.New("sampler output accessor out of range")
	}

	rawTimes, err := modeler.ReadAccessor(doc, doc.Accessors[inputIndex], nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read keyframe times")
	}
	times, ok := rawTimes.([]float32)
	if !ok {
		return nil, errors.Errorf("keyframe times have unsupported type %T", rawTimes)
	}

	rawValues, err := modeler.ReadAccessor(doc, doc.Accessors[outputIndex], nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read keyframe values")
	}
	values, err := gltfTrackValues(rawValues)
	if err != nil {
		return nil, err
	}

	if sampler.Interpolation == gltf.InterpolationCubicSpline {
		if len(values) != 3*len(times) {
			return nil, errors.Errorf("cubic spline has %d values for %d keys", len(values), len(times))
		}
		taps := make([]mgl32.Vec4, len(times))
		for k := range taps {
			taps[k] = values[3*k+1]
		}
		values = taps
	}

	if len(times) == 0 || len(values) != len(times) {
		return nil, errors.Errorf("sampler has %d times and %d values", len(times), len(values))
	}

	return &gltfTrack{times: times, values: values, interpolation: sampler.Interpolation}, nil
}

// gltfTrackValues widens the accessor element types allowed for TRS outputs to Vec4.
// Normalized integer rotations are mapped to [-1, 1] as glTF defines.
func gltfTrackValues(raw any) ([]mgl32.Vec4, error) {
	switch v := raw.(type) {
	case [][3]float32:
		out := make([]mgl32.Vec4, len(v))
		for i, e := range v {
			out[i] = mgl32.Vec4{e[0], e[1], e[2], 0}
		}
		return out, nil
	case [][4]float32:
		out := make([]mgl32.Vec4, len(v))
		for i, e := range v {
			out[i] = mgl32.Vec4(e)
		}
		return out, nil
	case [][4]int8:
		return gltfNormalized(v, func(c int8) float32 { return max(float32(c)/127, -1) }), nil
	case [][4]uint8:
		return gltfNormalized(v, func(c uint8) float32 { return float32(c) / 255 }), nil
	case [][4]int16:
		return gltfNormalized(v, func(c int16) float32 { return max(float32(c)/32767, -1) }), nil
	case [][4]uint16:
		return gltfNormalized(v, func(c uint16) float32 { return float32(c) / 65535 }), nil
	default:
		return nil, errors.Errorf("keyframe values have unsupported type %T", raw)
	}
}

func gltfNormalized[T int8 | uint8 | int16 | uint16](v [][4]T, conv func(T) float32) []mgl32.Vec4 {
	out := make([]mgl32.Vec4, len(v))
	for i, e := range v {
		out[i] = mgl32.Vec4{conv(e[0]), conv(e[1]), conv(e[2]), conv(e[3])}
	}
	return out
}

// sample evaluates the track at t. Times before the first key hold the first value and
// times past the last key hold the last value.
func (tr *gltfTrack) sample(t float32, rotation bool) mgl32.Vec4 {
	n := len(tr.times)
	if n == 1 || t <= tr.times[0] {
		return tr.values[0]
	}
	if t >= tr.times[n-1] {
		return tr.values[n-1]
	}

	// Largest k with times[k] <= t.
	k := sort.Search(n, func(i int) bool { return tr.times[i] > t }) - 1
	if tr.interpolation == gltf.InterpolationStep {
		return tr.values[k]
	}

	alpha := (t - tr.times[k]) / (tr.times[k+1] - tr.times[k])
	a, b := tr.values[k], tr.values[k+1]
	if rotation {
		q := common.SlerpShortest(
			mgl32.Quat{W: a[3], V: a.Vec3()},
			mgl32.Quat{W: b[3], V: b.Vec3()},
			alpha,
		)
		return q.V.Vec4(q.W)
	}
	return common.LerpVec3(a.Vec3(), b.Vec3(), alpha).Vec4(0)
}

// gltfIndex reads an optional or required glTF index field.
func gltfIndex[T uint32 | *uint32](v T) (int, bool) {
	switch x := any(v).(type) {
	case uint32:
		return int(x), true
	case *uint32:
		if x == nil {
			return 0, false
		}
		return int(*x), true
	}
	return 0, false
}
