package loader

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-pose/engine/animator"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
)

const testGLTFTemplate = `{
  "asset": {"version": "2.0"},
  "nodes": [
    {"name": "hip", "children": [1], "translation": [0, 1, 0]},
    {"name": "knee", "translation": [0, 0, 1]},
    {"name": "prop"}
  ],
  "skins": [{"joints": [0, 1]}],
  "buffers": [{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 8},
    {"buffer": 0, "byteOffset": 8, "byteLength": 24},
    {"buffer": 0, "byteOffset": 32, "byteLength": 8},
    {"buffer": 0, "byteOffset": 40, "byteLength": 32}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 2, "type": "SCALAR"},
    {"bufferView": 1, "componentType": 5126, "count": 2, "type": "VEC3"},
    {"bufferView": 2, "componentType": 5126, "count": 2, "type": "SCALAR"},
    {"bufferView": 3, "componentType": 5126, "count": 2, "type": "VEC4"},
    {"bufferView": 0, "componentType": 5126, "count": 1, "type": "SCALAR"},
    {"bufferView": 1, "componentType": 5126, "count": 1, "type": "VEC3"}
  ],
  "animations": [
    {
      "name": "walk",
      "samplers": [
        {"input": 0, "output": 1, "interpolation": "LINEAR"},
        {"input": 2, "output": 3, "interpolation": "STEP"}
      ],
      "channels": [
        {"sampler": 0, "target": {"node": 0, "path": "translation"}},
        {"sampler": 1, "target": {"node": 1, "path": "rotation"}}
      ]
    },
    {
      "name": "spin_prop",
      "samplers": [{"input": 0, "output": 1}],
      "channels": [{"sampler": 0, "target": {"node": 2, "path": "translation"}}]
    },
    {
      "name": "idle",
      "samplers": [{"input": 4, "output": 5}],
      "channels": [{"sampler": 0, "target": {"node": 1, "path": "translation"}}]
    }
  ]
}`

func float32Bytes(vals ...float32) []byte {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// testGLTF returns a two-joint skinned document with a translation track on the hip,
// a stepped quarter turn about Z on the knee, and a track on a node outside the skin.
func testGLTF() string {
	var buf []byte
	buf = append(buf, float32Bytes(0, 1)...)
	buf = append(buf, float32Bytes(0, 0, 0, 2, 0, 0)...)
	buf = append(buf, float32Bytes(0, 0.5)...)
	buf = append(buf, float32Bytes(0, 0, 0, 1, 0, 0, 0.70710677, 0.70710677)...)
	return fmt.Sprintf(testGLTFTemplate, len(buf), base64.StdEncoding.EncodeToString(buf))
}

func loadTestGLTF(t *testing.T) model.Model {
	t.Helper()
	m, err := newGLTFLoaderBackend().LoadReader("rig", strings.NewReader(testGLTF()))
	require.NoError(t, err)
	require.NoError(t, validateModel(m))
	return m
}

// assertVec3Near compares component-wise with an absolute tolerance.
func assertVec3Near(t *testing.T, want, got mgl32.Vec3, msgAndArgs ...any) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], 1e-5, msgAndArgs...)
}

// assertQuatNear compares x, y, z, w with an absolute tolerance. Sign matters.
func assertQuatNear(t *testing.T, want, got mgl32.Quat, msgAndArgs ...any) {
	t.Helper()
	assert.InDeltaSlice(t,
		[]float32{want.X(), want.Y(), want.Z(), want.W},
		[]float32{got.X(), got.Y(), got.Z(), got.W},
		1e-5, msgAndArgs...)
}

func TestGLTFSkeleton(t *testing.T) {
	m := loadTestGLTF(t)

	skel := m.Skeleton()
	require.Equal(t, 2, skel.JointCount())
	assert.Equal(t, "hip", skel.Joints[0].Name)
	assert.Equal(t, "knee", skel.Joints[1].Name)
	assert.True(t, skel.Joints[0].IsRoot())
	assert.Equal(t, uint8(0), skel.Joints[1].Parent)
	assert.Equal(t, "rig", m.Name())
	assert.Empty(t, m.Source())
}

func TestGLTFAnimationResampling(t *testing.T) {
	m := loadTestGLTF(t)

	assert.Equal(t, []string{"walk", "idle"}, m.AnimationNames())

	walk := m.Animation("walk")
	require.NotNil(t, walk)
	assert.Equal(t, []float32{0, 0.5, 1}, walk.Timestamps)
	assert.Equal(t, float32(1), walk.Duration)
	assert.Equal(t, float32(1), walk.Speed)
	assert.Same(t, m.Skeleton(), walk.Skeleton)

	mid := walk.Poses[1].JointPoses
	assertVec3Near(t, mgl32.Vec3{1, 0, 0}, mid[0].Translation)
	assertVec3Near(t, mgl32.Vec3{0, 0, 1}, mid[1].Translation, "untargeted property keeps rest value")
	assertVec3Near(t, mgl32.Vec3{1, 1, 1}, mid[1].Scale)

	quarter := mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})
	assertQuatNear(t, mgl32.QuatIdent(), walk.Poses[0].JointPoses[1].Rotation)
	assertQuatNear(t, quarter, walk.Poses[1].JointPoses[1].Rotation)
	assertQuatNear(t, quarter, walk.Poses[2].JointPoses[1].Rotation)
	assertVec3Near(t, mgl32.Vec3{2, 0, 0}, walk.Poses[2].JointPoses[0].Translation)
}

func TestGLTFSingleKeyframeIsPadded(t *testing.T) {
	idle := loadTestGLTF(t).Animation("idle")
	require.NotNil(t, idle)

	assert.Equal(t, []float32{0, 1}, idle.Timestamps)
	assert.Equal(t, float32(1), idle.Duration)
	assert.Equal(t, idle.Poses[0], idle.Poses[1])
	assertVec3Near(t, mgl32.Vec3{}, idle.Poses[0].JointPoses[1].Translation)
}

func TestGLTFEvaluatesInSeconds(t *testing.T) {
	walk := loadTestGLTF(t).Animation("walk")

	out := animator.NewAnimator(animator.BackendTypeMemoized).ComputePoseAt(walk, 0.5)
	require.Len(t, out, 2)

	knee := out[1].Col(3)
	assert.InDelta(t, 1, knee.X(), 1e-5)
	assert.InDelta(t, 0, knee.Y(), 1e-5)
	assert.InDelta(t, 1, knee.Z(), 1e-5)
}

func TestGLTFLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.gltf")
	require.NoError(t, os.WriteFile(path, []byte(testGLTF()), 0o600))

	m, err := newGLTFLoaderBackend().Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rig", m.Name())
	assert.Equal(t, path, m.Source())
	assert.Equal(t, 2, m.AnimationCount())
}

func TestGLTFWithoutSkin(t *testing.T) {
	_, err := newGLTFLoaderBackend().LoadReader("empty", strings.NewReader(`{"asset": {"version": "2.0"}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNoSkeleton)
}

func TestGLTFTrackSample(t *testing.T) {
	track := &gltfTrack{
		times:  []float32{1, 2, 4},
		values: []mgl32.Vec4{{0, 0, 0, 0}, {2, 0, 0, 0}, {2, 4, 0, 0}},
	}

	tests := []struct {
		name string
		t    float32
		want mgl32.Vec4
	}{
		{"before first key holds first value", 0, mgl32.Vec4{0, 0, 0, 0}},
		{"midpoint lerps", 1.5, mgl32.Vec4{1, 0, 0, 0}},
		{"exact key", 2, mgl32.Vec4{2, 0, 0, 0}},
		{"second interval", 3, mgl32.Vec4{2, 2, 0, 0}},
		{"past last key holds last value", 9, mgl32.Vec4{2, 4, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := track.sample(tt.t, false)
			assert.InDeltaSlice(t, tt.want[:], got[:], 1e-5)
		})
	}

	track.interpolation = gltf.InterpolationStep
	assert.Equal(t, mgl32.Vec4{2, 0, 0, 0}, track.sample(3.9, false))
}

func TestGLTFTrackSampleRotationTakesShortArc(t *testing.T) {
	// Second key is the same orientation with flipped sign.
	track := &gltfTrack{
		times:  []float32{0, 1},
		values: []mgl32.Vec4{{0, 0, 0, 1}, {0, 0, 0, -1}},
	}

	v := track.sample(0.5, true)
	q := mgl32.Quat{W: v[3], V: v.Vec3()}
	assertQuatNear(t, mgl32.QuatIdent(), q)
}

func TestGLTFTrackValues(t *testing.T) {
	values, err := gltfTrackValues([][4]int16{{0, 0, 32767, -32768}})
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{0, 0, 1, -1}, values[0])

	values, err = gltfTrackValues([][4]uint8{{255, 0, 0, 255}})
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, values[0])

	values, err = gltfTrackValues([][3]float32{{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{1, 2, 3, 0}, values[0])

	_, err = gltfTrackValues([]float32{1})
	assert.Error(t, err)
}

func TestGLTFDecomposeMatrix(t *testing.T) {
	rot := mgl32.QuatRotate(0.7, mgl32.Vec3{1, 2, 3}.Normalize())
	m := mgl32.Translate3D(1, 2, 3).Mul4(rot.Mat4()).Mul4(mgl32.Scale3D(2, 3, 4))

	pose := gltfDecomposeMatrix(m)
	assertVec3Near(t, mgl32.Vec3{1, 2, 3}, pose.Translation)
	assert.InDeltaSlice(t, []float32{2, 3, 4}, pose.Scale[:], 1e-4)
	assert.True(t, mgl32.FloatEqualThreshold(float32(math.Abs(float64(pose.Rotation.Dot(rot)))), 1, 1e-4))
}

func TestGLTFIndex(t *testing.T) {
	idx, ok := gltfIndex(uint32(3))
	assert.True(t, ok)
	assert.Equal(t, 3, idx)

	_, ok = gltfIndex((*uint32)(nil))
	assert.False(t, ok)

	idx, ok = gltfIndex(gltf.Index(7))
	assert.True(t, ok)
	assert.Equal(t, 7, idx)
}
