package loader

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/birdinforest/gltfmesh/geometry"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	readFile readFileFunc
	workers  int

	// assemblyPool manages a bounded set of reusable goroutines for the
	// per-primitive assembly phase. Primitives are independent, so each
	// one is a separate task.
	assemblyPool worker.DynamicWorkerPool
}

// gltfImporter defines the interface for orchestrating a full glTF/GLB
// import. It combines the parser and the mesh extractor to produce a
// complete decoded Asset.
type gltfImporter interface {
	// Import loads a glTF/GLB file and decodes every mesh primitive.
	//
	// Parameters:
	//   - path: the file path to the glTF or GLB file
	//
	// Returns:
	//   - *geometry.Asset: the fully decoded asset
	//   - error: error if import fails
	Import(path string) (*geometry.Asset, error)

	// ImportReader loads a glTF document from a reader and decodes every
	// mesh primitive. The reader should provide a complete glTF JSON or
	// GLB binary stream.
	//
	// Parameters:
	//   - r: the reader providing glTF/GLB data
	//   - isGLB: true if the reader provides GLB binary data, false for glTF JSON
	//
	// Returns:
	//   - *geometry.Asset: the fully decoded asset
	//   - error: error if import fails
	ImportReader(r io.Reader, isGLB bool) (*geometry.Asset, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Parameters:
//   - readFile: the I/O collaborator for external buffer URIs (nil for os.ReadFile)
//   - workers: the assembly worker count (must be at least 1)
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(readFile readFileFunc, workers int) gltfImporter {
	// Queue size of 256 accommodates typical primitive counts with headroom.
	return &gltfImporterImpl{
		readFile:     readFile,
		workers:      workers,
		assemblyPool: worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
	}
}

func (imp *gltfImporterImpl) Import(path string) (*geometry.Asset, error) {
	parser := newGLTFParser(imp.readFile)
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return imp.importFromParser(parser, path)
}

func (imp *gltfImporterImpl) ImportReader(r io.Reader, isGLB bool) (*geometry.Asset, error) {
	parser := newGLTFParser(imp.readFile)
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}

	return imp.importFromParser(parser, "")
}

// importFromParser decodes every primitive of every mesh from a parser
// that has already loaded a document. Assembly fans out across the worker
// pool, one task per primitive writing into its own pre-sized slot; a
// WaitGroup is the explicit completion barrier. The first failure wins and
// fails the whole import — partial assets are never returned.
func (imp *gltfImporterImpl) importFromParser(parser gltfParser, fallbackPath string) (*geometry.Asset, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document after parsing")
	}

	extractor := newGLTFMeshExtractor(parser)

	meshes := make([]geometry.Mesh, len(doc.Meshes))
	for i := range doc.Meshes {
		meshes[i] = geometry.Mesh{
			Name:       meshName(&doc.Meshes[i], i),
			Primitives: make([]*geometry.Geometry, len(doc.Meshes[i].Primitives)),
		}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	taskID := 0
	for meshIdx := range doc.Meshes {
		for primIdx := range doc.Meshes[meshIdx].Primitives {
			wg.Add(1)
			mi, pi := meshIdx, primIdx
			id := taskID
			taskID++
			imp.assemblyPool.SubmitTask(worker.Task{
				ID: id,
				Do: func() (any, error) {
					defer wg.Done()

					g, err := extractor.ExtractPrimitive(mi, pi)
					if err != nil {
						mu.Lock()
						if firstErr == nil {
							firstErr = err
						}
						mu.Unlock()
						return nil, err
					}

					meshes[mi].Primitives[pi] = g
					return nil, nil
				},
			})
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("mesh extraction failed: %w", firstErr)
	}

	return &geometry.Asset{
		Name:   gltfExtractAssetName(doc, fallbackPath),
		Meshes: meshes,
	}, nil
}

// gltfExtractAssetName derives an asset name from the document's default
// scene or a file path fallback.
func gltfExtractAssetName(doc *gltfDocument, fallbackPath string) string {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		if name := doc.Scenes[*doc.Scene].Name; name != "" {
			return name
		}
	}

	if fallbackPath != "" {
		return fallbackPath
	}

	return "unnamed_asset"
}
