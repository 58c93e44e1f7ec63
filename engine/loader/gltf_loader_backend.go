package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct{}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
// It reads the first skin as the skeleton and every animation that drives one of its joints.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend() gltfLoaderBackend {
	return &gltfLoaderBackendImpl{}
}

func (b *gltfLoaderBackendImpl) Load(path string) (model.Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open glTF %s", path)
	}
	return b.importDocument(doc, modelNameFromPath(path), path)
}

// LoadReader decodes glTF JSON or GLB from r. Buffers must be embedded (GLB chunk or data URI)
// since there is no directory to resolve external files against.
func (b *gltfLoaderBackendImpl) LoadReader(name string, r io.Reader) (model.Model, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode glTF")
	}
	return b.importDocument(doc, name, "")
}

// importDocument extracts the skeleton and animations from a decoded document.
func (b *gltfLoaderBackendImpl) importDocument(doc *gltf.Document, name, source string) (model.Model, error) {
	if len(doc.Skins) == 0 {
		return nil, errors.Wrap(model.ErrNoSkeleton, "document has no skin")
	}

	skel, err := extractGLTFSkeleton(doc, 0)
	if err != nil {
		return nil, err
	}

	animations := make([]*model.Animation, 0, len(doc.Animations))
	for i := range doc.Animations {
		anim, err := extractGLTFAnimation(doc, i, skel)
		if err != nil {
			return nil, err
		}
		if anim != nil {
			animations = append(animations, anim)
		}
	}

	return model.NewModel(
		model.WithName(name),
		model.WithSource(source),
		model.WithSkeleton(skel.skeleton),
		model.WithAnimations(animations...),
	), nil
}
