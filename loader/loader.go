package loader

import (
	"fmt"
	"io"
	"path"
	"runtime"
	"strings"
	"sync"

	"github.com/birdinforest/gltfmesh/geometry"
)

// LoaderBackendType identifies the asset file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	readFile readFileFunc
	workers  int

	assetCache map[string]*geometry.Asset

	backend loaderBackend
}

// Loader defines the public-facing interface for loading and caching
// decoded assets. It abstracts the file format (glTF, GLB) behind a
// generic backend and manages a cache of previously loaded assets.
type Loader interface {
	// Load imports an asset file and caches the result.
	// If the asset is already cached (by file path), the cached version is
	// returned. The backend is selected based on the file extension
	// (.gltf/.glb → glTF backend).
	//
	// Parameters:
	//   - path: the file path to the asset file
	//
	// Returns:
	//   - *geometry.Asset: the loaded and cached asset
	//   - error: error if loading fails
	Load(path string) (*geometry.Asset, error)

	// LoadReader imports an asset from a reader stream and caches it by
	// the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded asset
	//   - r: the reader providing asset data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *geometry.Asset: the loaded asset
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (*geometry.Asset, error)

	// Get retrieves a cached asset by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *geometry.Asset: the cached asset or nil
	Get(name string) *geometry.Asset

	// Assets returns the full asset cache.
	//
	// Returns:
	//   - map[string]*geometry.Asset: all cached assets keyed by name
	Assets() map[string]*geometry.Asset
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		workers:    max(runtime.NumCPU()-1, 1),
		assetCache: make(map[string]*geometry.Asset),
	}

	for _, option := range options {
		option(l)
	}

	// Initialize the backend after options so WithReadFile and WithWorkers
	// can override the defaults.
	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(l.readFile, l.workers)
	}

	return l
}

func (l *loader) Load(filePath string) (*geometry.Asset, error) {
	l.mu.RLock()
	if cached, ok := l.assetCache[filePath]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(filePath)
	if err != nil {
		return nil, err
	}

	asset, err := backend.Load(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filePath, err)
	}

	l.mu.Lock()
	l.assetCache[filePath] = asset
	l.mu.Unlock()

	return asset, nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*geometry.Asset, error) {
	l.mu.RLock()
	if cached, ok := l.assetCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	asset, err := l.backend.LoadReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	l.mu.Lock()
	l.assetCache[name] = asset
	l.mu.Unlock()

	return asset, nil
}

func (l *loader) Get(name string) *geometry.Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.assetCache[name]
}

func (l *loader) Assets() map[string]*geometry.Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*geometry.Asset, len(l.assetCache))
	for k, v := range l.assetCache {
		result[k] = v
	}
	return result
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(filePath string) (loaderBackend, error) {
	ext := strings.ToLower(path.Ext(filePath))
	switch ext {
	case ".gltf", ".glb":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("unsupported asset format: %s", ext)
	}
}
