package tools

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

func itoa(n int) string { return strconv.Itoa(n) }

// shortHash gives candidate_id/evidence_ref values a short, stable,
// collision-resistant suffix without carrying the full path around,
// matching internal/stabilization's own truncated-SHA-1 convention.
func shortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}
