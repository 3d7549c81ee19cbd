package loader

import (
	"strings"
)

// gltf_uri.go resolves buffer URIs: embedded data URIs decode in-process,
// everything else is turned into a path for the read-file collaborator.

const base64Marker = "base64,"

// isDataURI reports whether the URI embeds its payload inline.
func isDataURI(uri string) bool {
	return strings.HasPrefix(uri, "data:")
}

// decodeDataURI decodes the base64 payload of a data URI.
//
// Parameters:
//   - uri: the full data URI (any "data:...base64," prefix)
//
// Returns:
//   - []byte: the decoded payload
//   - bool: false when the URI carries no base64 marker
func decodeDataURI(uri string) ([]byte, bool) {
	idx := strings.Index(uri, base64Marker)
	if idx < 0 {
		return nil, false
	}
	return decodeBase64(uri, idx+len(base64Marker)), true
}

// resolveURI resolves a relative buffer URI against the document's base
// path. Absolute paths pass through unchanged. Leading "./" segments are
// stripped; each leading "../" segment pops one trailing segment of the
// base path beyond the document segment itself.
//
// Parameters:
//   - uri: the buffer URI from the document
//   - base: the document's base path (no trailing slash)
//
// Returns:
//   - string: the resolved path
func resolveURI(uri, base string) string {
	if strings.HasPrefix(uri, "/") {
		return uri
	}

	for strings.HasPrefix(uri, "./") {
		uri = uri[2:]
	}

	ups := 0
	for strings.HasPrefix(uri, "../") {
		uri = uri[3:]
		ups++
	}

	if ups > 0 {
		segments := strings.Split(base, "/")
		// The final base segment names the document; pop it along with one
		// directory per "../".
		keep := len(segments) - ups - 1
		if keep < 0 {
			keep = 0
		}
		segments = segments[:keep]
		if len(segments) == 0 {
			return uri
		}
		return strings.Join(segments, "/") + "/" + uri
	}

	if base == "" {
		return uri
	}
	return base + "/" + uri
}
