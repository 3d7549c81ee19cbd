package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/birdinforest/gltfmesh/geometry"
)

// --- Fixture Helpers ---

func floatBytes(vals ...float32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func uint16Bytes(vals ...uint16) []byte {
	buf := make([]byte, len(vals)*2)
	for i, v := range vals {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	return buf
}

func dataURI(payload []byte) string {
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(payload)
}

func parseJSON(t *testing.T, doc string) gltfParser {
	t.Helper()
	p := newGLTFParser(nil)
	if err := p.ParseReader(strings.NewReader(doc), false); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return p
}

// buildGLB assembles a minimal GLB container around a JSON document and a
// binary chunk.
func buildGLB(jsonDoc string, bin []byte) []byte {
	jsonChunk := []byte(jsonDoc)
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}

	var out bytes.Buffer
	total := 12 + 8 + len(jsonChunk)
	if bin != nil {
		total += 8 + len(bin)
	}

	binary.Write(&out, binary.LittleEndian, gltfGLBHeader{
		Magic:   gltfGLBMagic,
		Version: gltfGLBVersion,
		Length:  uint32(total),
	})
	binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{
		ChunkLength: uint32(len(jsonChunk)),
		ChunkType:   gltfGLBChunkJSON,
	})
	out.Write(jsonChunk)
	if bin != nil {
		binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{
			ChunkLength: uint32(len(bin)),
			ChunkType:   gltfGLBChunkBIN,
		})
		out.Write(bin)
	}

	return out.Bytes()
}

// --- Parser Tests ---

func TestParseRejectsWrongVersion(t *testing.T) {
	p := newGLTFParser(nil)
	err := p.ParseReader(strings.NewReader(`{"asset":{"version":"1.0"}}`), false)
	if err != errInvalidGLTFVersion {
		t.Fatalf("version check\nhave %v\nwant %v", err, errInvalidGLTFVersion)
	}
}

func TestReadAccessorLength(t *testing.T) {
	payload := floatBytes(
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	)
	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": %q, "byteLength": %d}],
		"bufferViews": [{"buffer": 0, "byteOffset": 0, "byteLength": %d}],
		"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}]
	}`, dataURI(payload), len(payload), len(payload))

	p := parseJSON(t, doc)
	attr, err := p.ReadAccessor(0, false)
	if err != nil {
		t.Fatalf("ReadAccessor failed: %v", err)
	}

	if attr.Element != geometry.ElementFloat32 {
		t.Errorf("element type\nhave %s\nwant float32", attr.Element)
	}
	if attr.Len() != 3*3 {
		t.Errorf("length\nhave %d\nwant %d", attr.Len(), 3*3)
	}
	if attr.Float32[3] != 1 {
		t.Errorf("component 3\nhave %g\nwant 1", attr.Float32[3])
	}
}

func TestReadAccessorInterleaved(t *testing.T) {
	// Two vertices of position (vec3) + uv (vec2) interleaved, stride 20.
	var payload []byte
	payload = append(payload, floatBytes(1, 2, 3, 10, 11)...)
	payload = append(payload, floatBytes(4, 5, 6, 12, 13)...)

	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": %q, "byteLength": %d}],
		"bufferViews": [{"buffer": 0, "byteLength": %d, "byteStride": 20}],
		"accessors": [
			{"bufferView": 0, "byteOffset": 0, "componentType": 5126, "count": 2, "type": "VEC3"},
			{"bufferView": 0, "byteOffset": 12, "componentType": 5126, "count": 2, "type": "VEC2"}
		]
	}`, dataURI(payload), len(payload), len(payload))

	p := parseJSON(t, doc)

	pos, err := p.ReadAccessor(0, false)
	if err != nil {
		t.Fatalf("position read failed: %v", err)
	}
	wantPos := []float32{1, 2, 3, 4, 5, 6}
	for i, w := range wantPos {
		if pos.Float32[i] != w {
			t.Errorf("position %d\nhave %g\nwant %g", i, pos.Float32[i], w)
		}
	}

	uv, err := p.ReadAccessor(1, false)
	if err != nil {
		t.Fatalf("uv read failed: %v", err)
	}
	wantUV := []float32{10, 11, 12, 13}
	for i, w := range wantUV {
		if uv.Float32[i] != w {
			t.Errorf("uv %d\nhave %g\nwant %g", i, uv.Float32[i], w)
		}
	}
}

func TestReadAccessorElementTypes(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": %q, "byteLength": 4}],
		"bufferViews": [{"buffer": 0, "byteLength": 4}],
		"accessors": [
			{"bufferView": 0, "componentType": 5121, "count": 4, "type": "SCALAR"},
			{"bufferView": 0, "componentType": 5120, "count": 4, "type": "SCALAR"}
		]
	}`, dataURI(payload))

	p := parseJSON(t, doc)

	ub, err := p.ReadAccessor(0, false)
	if err != nil {
		t.Fatalf("ubyte read failed: %v", err)
	}
	if ub.Element != geometry.ElementUint8 || len(ub.Uint8) != 4 {
		t.Errorf("ubyte accessor\nhave element %s len %d\nwant uint8 len 4", ub.Element, len(ub.Uint8))
	}

	sb, err := p.ReadAccessor(1, false)
	if err != nil {
		t.Fatalf("byte read failed: %v", err)
	}
	if sb.Element != geometry.ElementInt8 || sb.Int8[0] != 1 {
		t.Errorf("byte accessor\nhave element %s first %d\nwant int8 first 1", sb.Element, sb.Int8[0])
	}
}

func TestReadAccessorWidensUint32(t *testing.T) {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:], 7)
	binary.LittleEndian.PutUint32(payload[4:], 70000)

	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": %q, "byteLength": 8}],
		"bufferViews": [{"buffer": 0, "byteLength": 8}],
		"accessors": [{"bufferView": 0, "componentType": 5125, "count": 2, "type": "SCALAR"}]
	}`, dataURI(payload))

	p := parseJSON(t, doc)
	attr, err := p.ReadAccessor(0, false)
	if err != nil {
		t.Fatalf("ReadAccessor failed: %v", err)
	}

	if attr.Element != geometry.ElementFloat32 {
		t.Fatalf("element type\nhave %s\nwant float32", attr.Element)
	}
	if attr.Float32[0] != 7 || attr.Float32[1] != 70000 {
		t.Errorf("widened values\nhave %v\nwant [7 70000]", attr.Float32)
	}
}

func TestReadAccessorQuantizedIdentity(t *testing.T) {
	payload := uint16Bytes(100, 200, 300, 400, 500, 600)
	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": %q, "byteLength": %d}],
		"bufferViews": [{"buffer": 0, "byteLength": %d}],
		"accessors": [{
			"bufferView": 0, "componentType": 5123, "count": 2, "type": "VEC3",
			"extensions": {"WEB3D_quantized_attributes": {
				"decodeMatrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]
			}}
		}]
	}`, dataURI(payload), len(payload), len(payload))

	p := parseJSON(t, doc)
	attr, err := p.ReadAccessor(0, false)
	if err != nil {
		t.Fatalf("ReadAccessor failed: %v", err)
	}

	if attr.Element != geometry.ElementFloat32 {
		t.Fatalf("element type\nhave %s\nwant float32", attr.Element)
	}
	want := []float32{100, 200, 300, 400, 500, 600}
	for i, w := range want {
		if attr.Float32[i] != w {
			t.Errorf("component %d\nhave %g\nwant %g", i, attr.Float32[i], w)
		}
	}
}

func TestReadAccessorQuantizedScaleOffset(t *testing.T) {
	payload := uint16Bytes(0, 100)
	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": %q, "byteLength": 4}],
		"bufferViews": [{"buffer": 0, "byteLength": 4}],
		"accessors": [{
			"bufferView": 0, "componentType": 5123, "count": 2, "type": "SCALAR",
			"extensions": {"WEB3D_quantized_attributes": {
				"decodeMatrix": [0.5, 0, 3, 1]
			}}
		}]
	}`, dataURI(payload))

	p := parseJSON(t, doc)
	attr, err := p.ReadAccessor(0, false)
	if err != nil {
		t.Fatalf("ReadAccessor failed: %v", err)
	}

	// value = raw*0.5 + 3
	if attr.Float32[0] != 3 || attr.Float32[1] != 53 {
		t.Errorf("dequantized values\nhave %v\nwant [3 53]", attr.Float32)
	}
}

func TestReadAccessorRejectsSparse(t *testing.T) {
	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": %q, "byteLength": 4}],
		"bufferViews": [{"buffer": 0, "byteLength": 4}],
		"accessors": [{
			"bufferView": 0, "componentType": 5126, "count": 1, "type": "SCALAR",
			"sparse": {"count": 1}
		}]
	}`, dataURI(floatBytes(1)))

	p := parseJSON(t, doc)
	if _, err := p.ReadAccessor(0, false); err == nil {
		t.Fatal("sparse accessor should be rejected")
	}
}

func TestReadIndicesWidens(t *testing.T) {
	payload := uint16Bytes(0, 1, 2, 2, 1, 3)
	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": %q, "byteLength": %d}],
		"bufferViews": [{"buffer": 0, "byteLength": %d}],
		"accessors": [{"bufferView": 0, "componentType": 5123, "count": 6, "type": "SCALAR"}]
	}`, dataURI(payload), len(payload), len(payload))

	p := parseJSON(t, doc)
	indices, err := p.ReadIndices(0)
	if err != nil {
		t.Fatalf("ReadIndices failed: %v", err)
	}

	want := []uint32{0, 1, 2, 2, 1, 3}
	for i, w := range want {
		if indices[i] != w {
			t.Errorf("index %d\nhave %d\nwant %d", i, indices[i], w)
		}
	}
}

func TestLoadBuffersMissingFile(t *testing.T) {
	readFile := func(path string) ([]byte, error) {
		return nil, fmt.Errorf("no such file: %s", path)
	}

	p := newGLTFParser(readFile)
	err := p.ParseReader(strings.NewReader(`{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": "missing.bin", "byteLength": 4}]
	}`), false)
	if err == nil {
		t.Fatal("missing buffer file should fail the parse")
	}
	if !strings.Contains(err.Error(), "missing.bin") {
		t.Errorf("error does not name the offending URI: %v", err)
	}
}

func TestLoadBuffersSizeMismatch(t *testing.T) {
	p := newGLTFParser(nil)
	err := p.ParseReader(strings.NewReader(fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": %q, "byteLength": 100}]
	}`, dataURI([]byte{1, 2, 3, 4}))), false)
	if err == nil {
		t.Fatal("short buffer should fail the parse")
	}
	if !strings.Contains(err.Error(), errBufferSizeMismatch.Error()) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseGLB(t *testing.T) {
	bin := floatBytes(0, 0, 0, 1, 0, 0, 0, 1, 0)
	jsonDoc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": %d}],
		"bufferViews": [{"buffer": 0, "byteLength": %d}],
		"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}]
	}`, len(bin), len(bin))

	p := newGLTFParser(nil)
	if err := p.ParseReader(bytes.NewReader(buildGLB(jsonDoc, bin)), true); err != nil {
		t.Fatalf("GLB parse failed: %v", err)
	}

	attr, err := p.ReadAccessor(0, false)
	if err != nil {
		t.Fatalf("ReadAccessor failed: %v", err)
	}
	if attr.Len() != 9 || attr.Float32[3] != 1 {
		t.Errorf("BIN-chunk accessor\nhave len %d, component 3 = %g\nwant len 9, component 3 = 1", attr.Len(), attr.Float32[3])
	}
}

func TestParseGLBBadMagic(t *testing.T) {
	glb := buildGLB(`{"asset":{"version":"2.0"}}`, nil)
	glb[0] = 'X'

	p := newGLTFParser(nil)
	if err := p.ParseReader(bytes.NewReader(glb), true); err != errInvalidGLBMagic {
		t.Fatalf("magic check\nhave %v\nwant %v", err, errInvalidGLBMagic)
	}
}
