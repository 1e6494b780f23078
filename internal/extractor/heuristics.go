package extractor

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// sampleBytes caps how much of a file's head is inspected for binary /
// printable-ratio checks, mirroring the original worker's header+footer
// fast-signature sampling without requiring a second disk read here.
const sampleBytes = 8192

// minifiedLineLengthThreshold is the average-line-length cutoff above which
// a file is treated as machine-generated/minified and excluded from AST
// parsing and FTS normalization.
const minifiedLineLengthThreshold = 500

// minifiedExtensions get a stricter, lower threshold since minifier output
// commonly runs one statement per short-ish line but packs many statements
// with semicolons.
var minifiedExtensions = map[string]bool{
	".js": true, ".min.js": true, ".css": true, ".min.css": true,
}

// IsBinary reports whether content looks like binary data: it contains a
// NUL byte, or its sample has enough non-printable bytes to fail a rough
// printable-ratio test.
func IsBinary(content []byte) bool {
	sample := content
	if len(sample) > sampleBytes {
		sample = sample[:sampleBytes]
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	return !printableRatioOK(sample)
}

// printableRatioOK requires at least 85% of runes in the sample to be
// printable ASCII, common whitespace, or valid non-control UTF-8 — loose
// enough to admit CJK and other multi-byte scripts.
func printableRatioOK(sample []byte) bool {
	if len(sample) == 0 {
		return true
	}
	printable := 0
	total := 0
	for len(sample) > 0 {
		r, size := utf8.DecodeRune(sample)
		sample = sample[size:]
		total++
		switch {
		case r == utf8.RuneError && size == 1:
			// invalid encoding: not printable
		case r == '\n' || r == '\r' || r == '\t':
			printable++
		case r < 0x20:
			// other control chars: not printable
		default:
			printable++
		}
	}
	if total == 0 {
		return true
	}
	return float64(printable)/float64(total) >= 0.85
}

// IsMinified estimates whether content is machine-generated/minified based
// on average line length, using a lower bar for extensions commonly shipped
// minified.
func IsMinified(path string, content string) bool {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return false
	}
	total := 0
	nonEmpty := 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		total += len(l)
		nonEmpty++
	}
	if nonEmpty == 0 {
		return false
	}
	avg := total / nonEmpty
	threshold := minifiedLineLengthThreshold
	ext := strings.ToLower(filepath.Ext(path))
	if minifiedExtensions[ext] {
		threshold = 200
	}
	return avg > threshold
}
