package idhash

import (
	"strings"

	"github.com/google/uuid"
)

// runNamespace scopes run IDs generated by this module.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("halo-cme-lab/detection-run"))

// ComputeRunID derives a deterministic UUIDv5 from the configuration digest and
// the input digests. Identical configuration and inputs give the same run ID.
func ComputeRunID(configDigest string, inputDigests ...string) string {
	name := configDigest + "|" + strings.Join(inputDigests, "|")
	return uuid.NewSHA1(runNamespace, []byte(name)).String()
}
