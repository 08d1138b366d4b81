// Package chunk splits oversized files into disguised pieces that slip
// under the remote service's single-file size cap, and reassembles them.
//
// The last chunk of an upload sequence carries a fixed-size trailing record
// describing the original file; reassembly locates that record, streams the
// chunks back together in order, strips the trailer and restores the true
// name. Reassembly fails closed: a missing chunk or a size mismatch is an
// error, never a silently truncated output.
package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrManifestMissing means no candidate file carried a valid trailing
	// record.
	ErrManifestMissing = errors.New("chunk manifest not found")

	// ErrChunkMissing means the manifest references a chunk that is not
	// among the provided files.
	ErrChunkMissing = errors.New("chunk missing")

	// ErrSizeMismatch means the reassembled byte count does not match the
	// size recorded in the manifest.
	ErrSizeMismatch = errors.New("reassembled size mismatch")

	// ErrRecordTooLarge means the manifest does not fit the fixed record
	// size (pathologically long name or too many parts).
	ErrRecordTooLarge = errors.New("manifest exceeds record size")

	// ErrNameUnsafe means a manifest name is not a plain file name. Records
	// arrive inside downloaded chunks, so a name carrying path separators or
	// dot segments must never reach a filepath.Join.
	ErrNameUnsafe = errors.New("manifest name not a plain file name")
)

// RecordSize is the exact length of the trailing record appended to the
// final chunk, padding included.
const RecordSize = 512

var recordMagic = []byte("LPMF1")

// Manifest describes one split file: the true name, the original byte size
// and the ordered chunk names needed to rebuild it.
type Manifest struct {
	Name  string   `json:"name"`
	Size  int64    `json:"size"`
	Parts []string `json:"parts"`
}

// EncodeRecord serializes m into exactly RecordSize bytes: magic, JSON
// payload, zero padding. Padding length is whatever brings the total to
// RecordSize regardless of name length.
func EncodeRecord(m *Manifest) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	if len(recordMagic)+len(payload) > RecordSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(recordMagic)+len(payload))
	}
	out := make([]byte, RecordSize)
	copy(out, recordMagic)
	copy(out[len(recordMagic):], payload)
	return out, nil
}

// DecodeRecord parses a trailing record. Returns ErrManifestMissing when b
// does not have the expected shape.
func DecodeRecord(b []byte) (*Manifest, error) {
	if len(b) != RecordSize || !bytes.HasPrefix(b, recordMagic) {
		return nil, ErrManifestMissing
	}
	payload := bytes.TrimRight(b[len(recordMagic):], "\x00")
	var m Manifest
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, ErrManifestMissing
	}
	if m.Name == "" || m.Size <= 0 || len(m.Parts) == 0 {
		return nil, ErrManifestMissing
	}
	if !plainName(m.Name) {
		return nil, fmt.Errorf("%w: %q", ErrNameUnsafe, m.Name)
	}
	for _, p := range m.Parts {
		if !plainName(p) {
			return nil, fmt.Errorf("%w: part %q", ErrNameUnsafe, p)
		}
	}
	return &m, nil
}

// plainName reports whether name is a bare file name with no path
// components.
func plainName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`)
}

// ReadTailRecord reads and decodes the trailing record of the file at path.
func ReadTailRecord(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.Size() < RecordSize {
		return nil, ErrManifestMissing
	}
	buf := make([]byte, RecordSize)
	if _, err := f.ReadAt(buf, st.Size()-RecordSize); err != nil && err != io.EOF {
		return nil, err
	}
	return DecodeRecord(buf)
}
