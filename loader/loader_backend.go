package loader

import (
	"io"

	"github.com/birdinforest/gltfmesh/geometry"
)

// loaderBackend defines the generic interface for decoding assets from
// files or streams. Concrete implementations (e.g., gltfLoaderBackend)
// handle format-specific details.
type loaderBackend interface {
	// Load performs a full asset import from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *geometry.Asset: the decoded asset
	//   - error: error if loading fails
	Load(path string) (*geometry.Asset, error)

	// LoadReader imports an asset from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing asset data
	//   - isGLB: true if the reader provides GLB binary data, false for text-based formats
	//
	// Returns:
	//   - *geometry.Asset: the decoded asset
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool) (*geometry.Asset, error)
}
