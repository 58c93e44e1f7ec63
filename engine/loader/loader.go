package loader

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// ReloadFunc is invoked by Watch after a watched model file changed on disk.
// previous is the model cached before the reload. On failure m is nil and previous stays cached.
type ReloadFunc func(path string, previous, m model.Model, err error)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	logger *slog.Logger

	modelCache map[string]model.Model

	backends map[LoaderBackendType]loaderBackend

	// watcher is non-nil while Watch is running; files loaded later are added to it.
	watcher *fsnotify.Watcher
}

// Loader defines the public-facing interface for loading and caching animated models.
// It abstracts the file format (glTF, GLB, YAML) behind a backend selected by extension and
// manages a cache of previously loaded models. Every cached model has passed validation.
type Loader interface {
	// Load imports a model file and caches the result.
	// If the model is already cached (by file path), the cached version is returned.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - model.Model: the loaded and cached model
	//   - error: error if the format is unsupported, loading fails or validation fails
	Load(path string) (model.Model, error)

	// LoadReader imports a model from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key and model name
	//   - r: the reader providing model data
	//   - backendType: the format of the stream
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if loading or validation fails
	LoadReader(name string, r io.Reader, backendType LoaderBackendType) (model.Model, error)

	// Reload loads a model file again from disk and replaces the cached entry.
	// On failure the previously cached model is left in place.
	//
	// Parameters:
	//   - path: the file path used when the model was loaded
	//
	// Returns:
	//   - model.Model: the freshly loaded model
	//   - error: error if loading or validation fails
	Reload(path string) (model.Model, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - model.Model: the cached model or nil
	Get(name string) model.Model

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]model.Model: all cached models keyed by name
	Models() map[string]model.Model

	// Evict removes a model from the cache.
	//
	// Parameters:
	//   - name: the cache key to remove
	//
	// Returns:
	//   - bool: true if a model was removed
	Evict(name string) bool

	// Watch reloads cached file-backed models whenever their file is written or replaced,
	// until ctx is cancelled. Files loaded after Watch starts are watched too.
	//
	// Parameters:
	//   - ctx: controls the lifetime of the watcher
	//   - onReload: called after every reload attempt; may be nil
	//
	// Returns:
	//   - error: error if the watcher cannot be created or Watch is already running
	Watch(ctx context.Context, onReload ReloadFunc) error
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with every format backend registered and options applied.
//
// Parameters:
//   - options: variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the newly created Loader instance
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		logger:     slog.Default(),
		modelCache: make(map[string]model.Model),
		backends: map[LoaderBackendType]loaderBackend{
			BackendTypeGLTF: newGLTFLoaderBackend(),
			BackendTypeYAML: newYAMLLoaderBackend(),
		},
	}

	for _, opt := range options {
		opt(l)
	}

	return l
}

func (l *loader) Load(path string) (model.Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	m, err := l.loadFile(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.modelCache[path] = m
	if l.watcher != nil {
		l.watchDirLocked(path)
	}
	l.mu.Unlock()

	return m, nil
}

// loadFile imports and validates a model file without touching the cache.
func (l *loader) loadFile(path string) (model.Model, error) {
	backendType, err := BackendTypeForPath(path)
	if err != nil {
		return nil, err
	}

	m, err := l.backends[backendType].Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}
	if err := validateModel(m); err != nil {
		return nil, errors.Wrapf(err, "invalid model %s", path)
	}

	l.logger.Info("loaded model",
		"path", path,
		"format", backendType.String(),
		"joints", m.Skeleton().JointCount(),
		"animations", m.AnimationCount())

	return m, nil
}

func (l *loader) LoadReader(name string, r io.Reader, backendType LoaderBackendType) (model.Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, ok := l.backends[backendType]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "backend %d", int(backendType))
	}

	m, err := backend.LoadReader(name, r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load from reader %q", name)
	}
	if err := validateModel(m); err != nil {
		return nil, errors.Wrapf(err, "invalid model %q", name)
	}

	l.mu.Lock()
	l.modelCache[name] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) Reload(path string) (model.Model, error) {
	m, err := l.loadFile(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.modelCache[path] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) Get(name string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

func (l *loader) Evict(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.modelCache[name]; !ok {
		return false
	}
	delete(l.modelCache, name)
	return true
}

func (l *loader) Watch(ctx context.Context, onReload ReloadFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}

	l.mu.Lock()
	if l.watcher != nil {
		l.mu.Unlock()
		w.Close()
		return errors.New("loader is already watching")
	}
	l.watcher = w
	for key, m := range l.modelCache {
		if m.Source() == key {
			l.watchDirLocked(key)
		}
	}
	l.mu.Unlock()

	go l.watchLoop(ctx, w, onReload)
	return nil
}

// watchDirLocked adds the directory holding path to the active watcher.
// Directories are watched instead of files so editors that replace a file keep being tracked.
// Caller must hold l.mu.
func (l *loader) watchDirLocked(path string) {
	dir := filepath.Dir(path)
	if err := l.watcher.Add(dir); err != nil {
		l.logger.Warn("failed to watch directory", "dir", dir, "error", err)
	}
}

// watchLoop dispatches file events until ctx is done or the watcher closes.
func (l *loader) watchLoop(ctx context.Context, w *fsnotify.Watcher, onReload ReloadFunc) {
	defer func() {
		l.mu.Lock()
		if l.watcher == w {
			l.watcher = nil
		}
		l.mu.Unlock()
		w.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			key, ok := l.cacheKeyFor(event.Name)
			if !ok {
				continue
			}
			previous := l.Get(key)
			m, err := l.Reload(key)
			if err != nil {
				l.logger.Error("reload failed", "path", key, "error", err)
			} else {
				l.logger.Info("reloaded model", "path", key)
			}
			if onReload != nil {
				onReload(key, previous, m, err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.logger.Warn("file watcher error", "error", err)
		}
	}
}

// cacheKeyFor maps a file event path back to the cache key of a file-backed model.
func (l *loader) cacheKeyFor(name string) (string, bool) {
	clean := filepath.Clean(name)

	l.mu.RLock()
	defer l.mu.RUnlock()
	for key, m := range l.modelCache {
		if m.Source() == key && filepath.Clean(key) == clean {
			return key, true
		}
	}
	return "", false
}

// validateModel checks the skeleton and every animation of an imported model.
func validateModel(m model.Model) error {
	if m.Skeleton() == nil {
		return model.ErrNoSkeleton
	}
	if err := m.Skeleton().Validate(); err != nil {
		return err
	}
	for _, anim := range m.Animations() {
		if err := anim.Validate(); err != nil {
			return errors.Wrapf(err, "animation %q", anim.Name)
		}
	}
	return nil
}
