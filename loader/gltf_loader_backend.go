package loader

import (
	"io"

	"github.com/birdinforest/gltfmesh/geometry"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	importer gltfImporter
}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
// It delegates to the gltfImporter for parsing and extraction.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Parameters:
//   - readFile: the I/O collaborator for external buffer URIs (nil for os.ReadFile)
//   - workers: the assembly worker count
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend(readFile readFileFunc, workers int) gltfLoaderBackend {
	return &gltfLoaderBackendImpl{
		importer: newGLTFImporter(readFile, workers),
	}
}

func (b *gltfLoaderBackendImpl) Load(path string) (*geometry.Asset, error) {
	return b.importer.Import(path)
}

func (b *gltfLoaderBackendImpl) LoadReader(r io.Reader, isGLB bool) (*geometry.Asset, error) {
	return b.importer.ImportReader(r, isGLB)
}
