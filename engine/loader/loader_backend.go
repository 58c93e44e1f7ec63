package loader

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/pkg/errors"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
	// BackendTypeYAML selects the hand-authored YAML loader backend.
	BackendTypeYAML
)

// ErrUnsupportedFormat is returned when no backend handles a file extension.
var ErrUnsupportedFormat = errors.New("unsupported model format")

func (t LoaderBackendType) String() string {
	switch t {
	case BackendTypeGLTF:
		return "gltf"
	case BackendTypeYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// BackendTypeForPath selects a backend from a file extension.
// .gltf and .glb map to glTF, .yaml and .yml map to YAML.
//
// Parameters:
//   - path: the file path or name carrying the extension
//
// Returns:
//   - LoaderBackendType: the matching backend
//   - error: ErrUnsupportedFormat if the extension is unknown
func BackendTypeForPath(path string) (LoaderBackendType, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		return BackendTypeGLTF, nil
	case ".yaml", ".yml":
		return BackendTypeYAML, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedFormat, "extension %q", ext)
	}
}

// loaderBackend defines the generic interface for loading models from files or streams.
// Concrete implementations (gltfLoaderBackend, yamlLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load performs a full model import from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - model.Model: the imported skeleton and animations
	//   - error: error if loading fails
	Load(path string) (model.Model, error)

	// LoadReader imports a model from a reader stream.
	//
	// Parameters:
	//   - name: the model name recorded on the result
	//   - r: the reader providing model data
	//
	// Returns:
	//   - model.Model: the imported skeleton and animations
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader) (model.Model, error)
}

// modelNameFromPath derives a model name from a file path by dropping directory and extension.
func modelNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
