package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ComputeEventID computes a deterministic event_id using SHA256.
// Formula: SHA256(window_id|start_unix_ms|end_unix_ms)
// Returns hex-encoded hash (64 characters).
func ComputeEventID(windowID string, start, end time.Time) string {
	data := fmt.Sprintf("%s|%d|%d",
		windowID,
		start.UnixMilli(),
		end.UnixMilli(),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeDigest hashes the given parts joined by "|".
func ComputeDigest(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte("|"))
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
