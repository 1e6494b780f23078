package extractor

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"encoding/hex"
	"io"

	"github.com/zeebo/xxh3"
)

// zlibMagic prefixes stored content that has been zlib-compressed, so a
// reader can tell compressed rows from plain ones without a schema column.
const zlibMagic = "ZLIB\x00"

// ContentHash returns the stable SHA-1 hex digest used for change detection
// across indexing passes. SHA-1 (not a stronger hash) matches the teacher's
// cheap, non-cryptographic use: detecting "did this file change", not
// defending against a deliberate collision.
func ContentHash(content []byte) string {
	sum := sha1.Sum(content)
	return hex.EncodeToString(sum[:])
}

// FastSignature returns a cheap non-cryptographic hash (xxh3) of content.
// Nothing in this module calls it: change detection uses the (mtime, size)
// check and ContentHash. Grounded on the teacher's pipeline.fileHash helper.
func FastSignature(content []byte) string {
	h := xxh3.New()
	_, _ = h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Compress zlib-compresses content and prefixes it with zlibMagic, at the
// teacher's level 6.
func Compress(content []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(zlibMagic)
	w, _ := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	_, _ = w.Write(content)
	_ = w.Close()
	return buf.Bytes()
}

// Decompress reverses Compress. Content without the zlib magic prefix is
// returned unchanged, since older rows were stored uncompressed.
func Decompress(stored []byte) ([]byte, error) {
	if !bytes.HasPrefix(stored, []byte(zlibMagic)) {
		return stored, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(stored[len(zlibMagic):]))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
