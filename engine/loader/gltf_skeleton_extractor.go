package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// gltfSkeleton is a skeleton extracted from a glTF skin together with the data animation
// extraction needs: the node-to-joint mapping and each joint's rest pose.
type gltfSkeleton struct {
	skeleton *model.Skeleton

	// nodeToJoint maps glTF node indices to joint ids.
	nodeToJoint map[int]uint8

	// rest holds each joint's node TRS, used for channels an animation does not drive.
	rest []model.JointPose
}

// extractGLTFSkeleton builds a skeleton from a skin. Joint ids follow the skin's joint order;
// a joint whose parent node is not itself a joint of the skin becomes a root.
//
// Parameters:
//   - doc: the decoded glTF document
//   - skinIndex: the index of the skin to extract
//
// Returns:
//   - *gltfSkeleton: the extracted skeleton, node mapping and rest pose
//   - error: error if the skin is missing, too large or references unknown nodes
func extractGLTFSkeleton(doc *gltf.Document, skinIndex int) (*gltfSkeleton, error) {
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return nil, errors.Errorf("skin index %d out of range", skinIndex)
	}
	skin := doc.Skins[skinIndex]
	if len(skin.Joints) > model.MaxJoints {
		return nil, errors.Wrapf(model.ErrTooManyJoints, "skin %d has %d joints", skinIndex, len(skin.Joints))
	}

	out := &gltfSkeleton{
		skeleton:    &model.Skeleton{Joints: make([]model.Joint, len(skin.Joints))},
		nodeToJoint: make(map[int]uint8, len(skin.Joints)),
		rest:        make([]model.JointPose, len(skin.Joints)),
	}

	for i, nodeRef := range skin.Joints {
		nodeIndex := int(nodeRef)
		if nodeIndex >= len(doc.Nodes) {
			return nil, errors.Errorf("joint %d: invalid node index %d", i, nodeIndex)
		}
		node := doc.Nodes[nodeIndex]

		name := node.Name
		if name == "" {
			name = fmt.Sprintf("joint_%d", i)
		}
		out.skeleton.Joints[i] = model.Joint{Name: name, Parent: model.RootParent}
		out.nodeToJoint[nodeIndex] = uint8(i)
		out.rest[i] = gltfNodeRestPose(node)
	}

	for nodeIndex, node := range doc.Nodes {
		parent, ok := out.nodeToJoint[nodeIndex]
		if !ok {
			continue
		}
		for _, childRef := range node.Children {
			if child, ok := out.nodeToJoint[int(childRef)]; ok {
				out.skeleton.Joints[child].Parent = parent
			}
		}
	}

	return out, nil
}

// gltfNodeRestPose reads a node's local transform. A non-identity matrix wins over TRS fields.
func gltfNodeRestPose(node *gltf.Node) model.JointPose {
	if m := gltfMat4(node.Matrix); m != (mgl32.Mat4{}) && m != mgl32.Ident4() {
		return gltfDecomposeMatrix(m)
	}

	pose := model.JointPose{
		Translation: gltfVec3(node.Translation),
		Rotation:    gltfQuat(node.Rotation).Normalize(),
		Scale:       gltfVec3(node.Scale),
	}
	// An all-zero scale only comes from documents built in memory without defaults.
	if pose.Scale == (mgl32.Vec3{}) {
		pose.Scale = mgl32.Vec3{1, 1, 1}
	}
	return pose
}

// gltfDecomposeMatrix decomposes a column-major affine matrix into translation, rotation and scale.
// Shear is discarded.
func gltfDecomposeMatrix(m mgl32.Mat4) model.JointPose {
	cols := [3]mgl32.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}

	var scale mgl32.Vec3
	var rot mgl32.Mat4
	for c := range cols {
		scale[c] = cols[c].Len()
		div := scale[c]
		if div < 1e-4 {
			div = 1
		}
		rot.SetCol(c, cols[c].Mul(1/div).Vec4(0))
	}
	rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})

	return model.JointPose{
		Translation: m.Col(3).Vec3(),
		Rotation:    mgl32.Mat4ToQuat(rot).Normalize(),
		Scale:       scale,
	}
}

// gltfVec3 converts a glTF vector of either float width to mgl32.
func gltfVec3[T float32 | float64](v [3]T) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

// gltfQuat converts a glTF (x, y, z, w) quaternion to mgl32.
func gltfQuat[T float32 | float64](v [4]T) mgl32.Quat {
	return mgl32.Quat{W: float32(v[3]), V: mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}}
}

func gltfMat4[T float32 | float64](v [16]T) mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range v {
		m[i] = float32(v[i])
	}
	return m
}
