package badger

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/google/uuid"
)

// ============================================================================
// Database Key Namespace Design
// ============================================================================
//
// Every key is owner-scoped except the account registry, which resolves
// username <-> public key before an owner scope even exists. Prefixed keys
// keep the namespaces disjoint and let range scans (e.g. "every file this
// owner has") walk a single contiguous prefix.
//
// Data Type              Prefix     Key Format                       Value
// ===========================================================================
// Username -> PublicKey  "u:"       u:<username>                     pk bytes
// PublicKey -> RootID     "r:"       r:<hex(pk)>                      uuid bytes
// Tree File              "f:"       f:<hex(owner)>:<uuid>            File (JSON)
// Written-at timestamp   "w:"       w:<hex(owner)>:<uuid>            int64 (binary)
// Usage counter          "g:"       g:<hex(owner)>                   int64 (binary)

const (
	prefixUsername  = "u:"
	prefixRoot      = "r:"
	prefixFile      = "f:"
	prefixWrittenAt = "w:"
	prefixUsage     = "g:"
)

func keyUsername(username string) []byte {
	return []byte(prefixUsername + username)
}

func keyRoot(pk []byte) []byte {
	return []byte(prefixRoot + hex.EncodeToString(pk))
}

func keyFile(owner []byte, id uuid.UUID) []byte {
	return []byte(prefixFile + hex.EncodeToString(owner) + ":" + id.String())
}

func keyFilePrefix(owner []byte) []byte {
	return []byte(prefixFile + hex.EncodeToString(owner) + ":")
}

func keyWrittenAt(owner []byte, id uuid.UUID) []byte {
	return []byte(prefixWrittenAt + hex.EncodeToString(owner) + ":" + id.String())
}

func keyUsage(owner []byte) []byte {
	return []byte(prefixUsage + hex.EncodeToString(owner))
}

func encodeInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func decodeInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}
