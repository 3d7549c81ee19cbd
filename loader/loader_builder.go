package loader

import (
	"github.com/birdinforest/gltfmesh/geometry"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithReadFile is an option builder that sets the I/O collaborator used to
// resolve external buffer URIs. Substitute network fetches, embedded
// filesystems, or test fixtures; the default is os.ReadFile.
//
// Parameters:
//   - readFile: the read function, taking a resolved path
//
// Returns:
//   - LoaderBuilderOption: a function that applies the read-file option to a loader
func WithReadFile(readFile func(path string) ([]byte, error)) LoaderBuilderOption {
	return func(l *loader) {
		l.readFile = readFile
	}
}

// WithWorkers is an option builder that sets the number of primitive
// assembly workers. Values below 1 are ignored; the default is one worker
// per CPU, minus one for the caller.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n >= 1 {
			l.workers = n
		}
	}
}

// WithAsset is an option builder that pre-populates the asset cache.
//
// Parameters:
//   - key: the cache key for the asset
//   - asset: the asset to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the asset option to a loader
func WithAsset(key string, asset *geometry.Asset) LoaderBuilderOption {
	return func(l *loader) {
		l.assetCache[key] = asset
	}
}
