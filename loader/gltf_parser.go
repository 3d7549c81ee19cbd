package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/birdinforest/gltfmesh/geometry"
)

// Common errors returned by the parser
var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
)

// readFileFunc reads the contents of a resolved buffer path. It is the
// loader's only I/O collaborator; callers may substitute network fetches,
// embedded filesystems, or fixtures.
type readFileFunc func(path string) ([]byte, error)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	basePath       string
	readFile       readFileFunc
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser defines the interface for loading and parsing glTF/GLB files.
// It handles buffer resolution, JSON deserialization, and typed accessor
// decodes. This is internal to the loader package.
type gltfParser interface {
	// Parse loads and parses a glTF/GLB file from the given path.
	// Automatically detects .gltf (JSON) vs .glb (binary) format.
	//
	// Parameters:
	//   - path: path to the glTF or GLB file
	//
	// Returns:
	//   - error: error if parsing fails
	Parse(path string) error

	// ParseReader parses a glTF document from a reader.
	// Use this when loading from embedded resources or network streams.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//   - isGLB: true if the data is in GLB format
	//
	// Returns:
	//   - error: error if parsing fails
	ParseReader(r io.Reader, isGLB bool) error

	// Document returns the parsed glTF document.
	// Returns nil if Parse has not been called successfully.
	//
	// Returns:
	//   - *gltfDocument: the parsed document or nil
	Document() *gltfDocument

	// BasePath returns the directory portion of the loaded document path.
	// Relative buffer URIs resolve against it.
	//
	// Returns:
	//   - string: the base path
	BasePath() string

	// ReadAccessor decodes an accessor into a typed attribute buffer.
	// The component type selects the storage element type (unrecognized
	// codes decode as float32); unsigned 32-bit data widens to float32
	// unless the accessor is read as an index buffer. Accessors carrying
	// a quantization decode matrix are dequantized into a fresh float32
	// buffer.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//   - isIndexBuffer: true when decoding an index accessor
	//
	// Returns:
	//   - *geometry.Attribute: the decoded attribute
	//   - error: error if decoding fails
	ReadAccessor(accessorIndex int, isIndexBuffer bool) (*geometry.Attribute, error)

	// ReadIndices reads an accessor as index data, widened to uint32.
	// Handles UNSIGNED_BYTE, UNSIGNED_SHORT, and UNSIGNED_INT component types.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - []uint32: the index data
	//   - error: error if reading fails
	ReadIndices(accessorIndex int) ([]uint32, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a new glTF parser instance.
//
// Parameters:
//   - readFile: the I/O collaborator for external buffer URIs (nil for os.ReadFile)
//
// Returns:
//   - gltfParser: a new parser instance
func newGLTFParser(readFile readFileFunc) gltfParser {
	if readFile == nil {
		readFile = os.ReadFile
	}
	return &gltfParserImpl{readFile: readFile}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) BasePath() string {
	return p.basePath
}

func (p *gltfParserImpl) Parse(filePath string) error {
	if dir := path.Dir(filePath); dir != "." {
		p.basePath = dir
	}

	data, err := p.readFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	ext := strings.ToLower(path.Ext(filePath))
	if ext == ".glb" || (len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic) {
		return p.parseGLB(data)
	}

	return p.parseGLTF(data)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}

	if isGLB {
		return p.parseGLB(data)
	}
	return p.parseGLTF(data)
}

// parseGLTF parses a glTF JSON file.
func (p *gltfParserImpl) parseGLTF(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}

	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}

	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}

	p.document = &doc
	return nil
}

// parseGLB parses a GLB binary file.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParserImpl) parseGLB(data []byte) error {
	if len(data) < 12 {
		return errors.New("GLB file too small")
	}

	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read GLB header: %w", err)
	}

	if header.Magic != gltfGLBMagic {
		return errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return errInvalidGLBVersion
	}

	var jsonData []byte
	var binData []byte

	for {
		var chunkHeader gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunkHeader); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read chunk header: %w", err)
		}

		chunkData := make([]byte, chunkHeader.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return fmt.Errorf("failed to read chunk data: %w", err)
		}

		switch chunkHeader.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = chunkData
		case gltfGLBChunkBIN:
			binData = chunkData
		}
	}

	if jsonData == nil {
		return errMissingJSONChunk
	}

	p.glbBinaryChunk = binData

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}

	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}

	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}

	p.document = &doc
	return nil
}

// loadBuffers resolves every declared buffer concurrently (data URIs,
// external URIs, or the GLB binary chunk) and waits for all of them before
// returning. Buffer-view slicing must not start until this barrier clears;
// the first failure cancels the remaining loads and is the one reported.
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	g, ctx := errgroup.WithContext(context.Background())

	for i := range doc.Buffers {
		buf := &doc.Buffers[i]

		if buf.URI == "" {
			if i == 0 && p.glbBinaryChunk != nil {
				buf.Data = p.glbBinaryChunk
				if len(buf.Data) < buf.ByteLength {
					return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
				}
				continue
			}
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := p.loadBufferURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			if len(data) < buf.ByteLength {
				return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
			}

			buf.Data = data
			return nil
		})
	}

	return g.Wait()
}

// loadBufferURI loads buffer data from a URI (data: URI or resolvable path).
func (p *gltfParserImpl) loadBufferURI(uri string) ([]byte, error) {
	if isDataURI(uri) {
		data, ok := decodeDataURI(uri)
		if !ok {
			return nil, fmt.Errorf("%w: %q carries no base64 payload", errInvalidBufferURI, uri)
		}
		return data, nil
	}

	fullPath := resolveURI(uri, p.basePath)
	data, err := p.readFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load buffer %q: %w", uri, err)
	}

	return data, nil
}

// --- Accessor Decoding ---

// readAccessorData copies an accessor's raw bytes out of its buffer view,
// honoring the view's byte stride when the data is interleaved.
func (p *gltfParserImpl) readAccessorData(acc *gltfAccessor, componentCount int) ([]byte, error) {
	if acc.Sparse != nil {
		return nil, errors.New("sparse accessors not supported")
	}
	if acc.BufferView == nil {
		return nil, errors.New("accessor has no bufferView")
	}
	if *acc.BufferView < 0 || *acc.BufferView >= len(p.document.BufferViews) {
		return nil, fmt.Errorf("bufferView index %d out of range", *acc.BufferView)
	}

	bv := &p.document.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(p.document.Buffers) {
		return nil, fmt.Errorf("buffer index %d out of range", bv.Buffer)
	}
	buf := &p.document.Buffers[bv.Buffer]

	componentSize := gltfComponentTypeSize(acc.ComponentType)
	elementSize := componentSize * componentCount

	stride := elementSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	bufferOffset := bv.ByteOffset + acc.ByteOffset
	if need := bufferOffset + (acc.Count-1)*stride + elementSize; acc.Count > 0 && need > len(buf.Data) {
		return nil, fmt.Errorf("accessor overruns buffer: need %d bytes, have %d", need, len(buf.Data))
	}

	result := make([]byte, acc.Count*elementSize)
	for i := 0; i < acc.Count; i++ {
		srcOffset := bufferOffset + i*stride
		dstOffset := i * elementSize
		copy(result[dstOffset:dstOffset+elementSize], buf.Data[srcOffset:srcOffset+elementSize])
	}

	return result, nil
}

func (p *gltfParserImpl) ReadAccessor(accessorIndex int, isIndexBuffer bool) (*geometry.Attribute, error) {
	if p.document == nil {
		return nil, errors.New("no document loaded")
	}
	if accessorIndex < 0 || accessorIndex >= len(p.document.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", accessorIndex)
	}

	acc := &p.document.Accessors[accessorIndex]

	componentCount := gltfAccessorTypeComponentCount(acc.Type)
	if componentCount == 0 {
		if !isIndexBuffer {
			return nil, fmt.Errorf("unsupported accessor type: %q", acc.Type)
		}
		componentCount = 1
	}

	data, err := p.readAccessorData(acc, componentCount)
	if err != nil {
		return nil, err
	}

	if acc.Extensions != nil && acc.Extensions.Quantized != nil {
		return dequantizeAccessor(acc, data, componentCount)
	}

	return decodeAccessor(acc, data, componentCount), nil
}

// decodeAccessor converts tightly packed little-endian accessor bytes into
// a typed attribute. Unsigned 32-bit components widen to float32 because
// downstream attribute buffers carry no 32-bit integer variant.
func decodeAccessor(acc *gltfAccessor, data []byte, componentCount int) *geometry.Attribute {
	total := acc.Count * componentCount
	attr := &geometry.Attribute{Components: componentCount}

	switch acc.ComponentType {
	case gltfComponentTypeByte:
		attr.Element = geometry.ElementInt8
		attr.Int8 = make([]int8, total)
		for i := range total {
			attr.Int8[i] = int8(data[i])
		}
	case gltfComponentTypeUnsignedByte:
		attr.Element = geometry.ElementUint8
		attr.Uint8 = append([]uint8(nil), data[:total]...)
	case gltfComponentTypeShort:
		attr.Element = geometry.ElementInt16
		attr.Int16 = make([]int16, total)
		for i := range total {
			attr.Int16[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
		}
	case gltfComponentTypeUnsignedShort:
		attr.Element = geometry.ElementUint16
		attr.Uint16 = make([]uint16, total)
		for i := range total {
			attr.Uint16[i] = binary.LittleEndian.Uint16(data[i*2:])
		}
	case gltfComponentTypeUnsignedInt:
		attr.Element = geometry.ElementFloat32
		attr.Float32 = make([]float32, total)
		for i := range total {
			attr.Float32[i] = float32(binary.LittleEndian.Uint32(data[i*4:]))
		}
	default:
		attr.Element = geometry.ElementFloat32
		attr.Float32 = make([]float32, total)
		for i := range total {
			attr.Float32[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	}

	return attr
}

// dequantizeAccessor materializes a quantized accessor into a fresh
// float32 buffer. The decode matrix is a row-major (n+1)x(n+1) affine
// matrix for n components: scale[k] sits on the diagonal and offset[k] in
// the final row.
func dequantizeAccessor(acc *gltfAccessor, data []byte, componentCount int) (*geometry.Attribute, error) {
	n := componentCount
	m := acc.Extensions.Quantized.DecodeMatrix
	if len(m) != (n+1)*(n+1) {
		return nil, fmt.Errorf("decode matrix has %d entries, want %d", len(m), (n+1)*(n+1))
	}

	scale := make([]float32, n)
	offset := make([]float32, n)
	for k := range n {
		scale[k] = m[k*(n+1)+k]
		offset[k] = m[n*(n+1)+k]
	}

	raw := decodeAccessor(acc, data, componentCount)
	total := acc.Count * componentCount
	out := make([]float32, total)
	for i := range total {
		out[i] = rawComponent(raw, i)*scale[i%n] + offset[i%n]
	}

	return &geometry.Attribute{
		Element:    geometry.ElementFloat32,
		Components: componentCount,
		Float32:    out,
	}, nil
}

// rawComponent reads scalar i of a decoded attribute as float32.
func rawComponent(a *geometry.Attribute, i int) float32 {
	switch a.Element {
	case geometry.ElementInt8:
		return float32(a.Int8[i])
	case geometry.ElementUint8:
		return float32(a.Uint8[i])
	case geometry.ElementInt16:
		return float32(a.Int16[i])
	case geometry.ElementUint16:
		return float32(a.Uint16[i])
	default:
		return a.Float32[i]
	}
}

func (p *gltfParserImpl) ReadIndices(accessorIndex int) ([]uint32, error) {
	if p.document == nil {
		return nil, errors.New("no document loaded")
	}
	if accessorIndex < 0 || accessorIndex >= len(p.document.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", accessorIndex)
	}

	acc := &p.document.Accessors[accessorIndex]
	if acc.Type != "" && acc.Type != gltfAccessorTypeScalar {
		return nil, fmt.Errorf("index accessor is not SCALAR: type=%s", acc.Type)
	}

	data, err := p.readAccessorData(acc, 1)
	if err != nil {
		return nil, err
	}

	result := make([]uint32, acc.Count)

	switch acc.ComponentType {
	case gltfComponentTypeUnsignedByte:
		for i := range acc.Count {
			result[i] = uint32(data[i])
		}
	case gltfComponentTypeUnsignedShort:
		for i := range acc.Count {
			result[i] = uint32(binary.LittleEndian.Uint16(data[i*2:]))
		}
	case gltfComponentTypeUnsignedInt:
		for i := range acc.Count {
			result[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
	default:
		return nil, fmt.Errorf("unsupported index component type: %d", acc.ComponentType)
	}

	return result, nil
}

// --- Helper Functions ---

// gltfComponentTypeSize returns the byte size of a component type.
// Unrecognized codes decode as float32.
func gltfComponentTypeSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	default:
		return 4
	}
}

// gltfAccessorTypeComponentCount returns the number of components for an accessor type.
func gltfAccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4:
		return 4
	case gltfAccessorTypeMat2:
		return 4
	case gltfAccessorTypeMat3:
		return 9
	case gltfAccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
