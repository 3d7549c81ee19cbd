package loader

// gltf_base64.go decodes base64 runs embedded inside data URIs. The decoder
// starts at an arbitrary character offset so the caller can hand it the
// whole URI string together with the position right after "base64,". Input
// is assumed well formed; malformed base64 produces undefined output, which
// matches what embedded buffer payloads written by exporters always are.

// base64Codes maps a character code to its 6-bit value. Characters outside
// the standard alphabet decode to 0.
var base64Codes = buildBase64Codes()

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

func buildBase64Codes() [256]byte {
	var codes [256]byte
	for i := range len(base64Alphabet) {
		codes[base64Alphabet[i]] = byte(i)
	}
	return codes
}

// decodeBase64 decodes the base64 run in s starting at charStart.
//
// Parameters:
//   - s: the string containing the base64 run
//   - charStart: the index of the first base64 character
//
// Returns:
//   - []byte: the decoded bytes
func decodeBase64(s string, charStart int) []byte {
	length := len(s) - charStart

	// Up to two '=' padding characters do not carry data.
	if length > 0 && s[len(s)-1] == '=' {
		length--
		if length > 0 && s[len(s)-2] == '=' {
			length--
		}
	}

	out := make([]byte, 0, (length/4)*3)

	i := charStart
	end := charStart + length
	for i+3 < end {
		c1 := base64Codes[s[i]]
		c2 := base64Codes[s[i+1]]
		c3 := base64Codes[s[i+2]]
		c4 := base64Codes[s[i+3]]
		out = append(out, c1<<2|c2>>4, (c2&15)<<4|c3>>2, (c3&3)<<6|c4)
		i += 4
	}

	// Trailing partial quartet from trimmed padding.
	switch end - i {
	case 3:
		c1 := base64Codes[s[i]]
		c2 := base64Codes[s[i+1]]
		c3 := base64Codes[s[i+2]]
		out = append(out, c1<<2|c2>>4, (c2&15)<<4|c3>>2)
	case 2:
		c1 := base64Codes[s[i]]
		c2 := base64Codes[s[i+1]]
		out = append(out, c1<<2|c2>>4)
	}

	return out
}
