package loader

import (
	"bytes"
	"testing"
)

func TestDecodeBase64(t *testing.T) {
	cases := []struct {
		name      string
		input     string
		charStart int
		want      []byte
	}{
		{"single byte with padding", "QQ==", 0, []byte{65}},
		{"two bytes with padding", "QUI=", 0, []byte{65, 66}},
		{"full quartet", "TWFu", 0, []byte("Man")},
		{"multiple quartets", "aGVsbG8gd29ybGQ=", 0, []byte("hello world")},
		{"offset into larger string", "data:application/octet-stream;base64,QQ==", len("data:application/octet-stream;base64,"), []byte{65}},
		{"empty run", "", 0, []byte{}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := decodeBase64(c.input, c.charStart)
			if !bytes.Equal(got, c.want) {
				t.Errorf("decodeBase64(%q, %d)\nhave %v\nwant %v", c.input, c.charStart, got, c.want)
			}
		})
	}
}

func TestDecodeDataURI(t *testing.T) {
	data, ok := decodeDataURI("data:application/octet-stream;base64,QUJD")
	if !ok {
		t.Fatal("data URI not recognized")
	}
	if !bytes.Equal(data, []byte("ABC")) {
		t.Errorf("payload\nhave %v\nwant %v", data, []byte("ABC"))
	}

	if _, ok := decodeDataURI("data:text/plain,hello"); ok {
		t.Error("non-base64 data URI should not decode")
	}
}
