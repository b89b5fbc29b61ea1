package stream

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/mongood/shelldata/shelldata"
)

// StateHash computes the state hash of a value.
// This is: sha256(compact text of value)
//
// Compact text is deterministic, so structurally equal values hash equal
// regardless of how their source text was laid out.
func StateHash(v *shelldata.Value) [32]byte {
	return StateHashText(shelldata.Serialize(v, shelldata.CompactOptions()))
}

// StateHashText computes SHA-256 of already serialized text.
func StateHashText(text string) [32]byte {
	return sha256.Sum256([]byte(text))
}

// VerifyBase checks if the current state hash matches the expected base.
func VerifyBase(current, expected [32]byte) bool {
	return current == expected
}

// HashToHex converts a 32-byte hash to lowercase hex string.
func HashToHex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// HexToHash parses a 64-character hex string to a 32-byte hash.
// An optional "sha256:" prefix is accepted.
func HexToHash(s string) ([32]byte, bool) {
	var h [32]byte

	if len(s) == 71 && s[:7] == "sha256:" {
		s = s[7:]
	}

	if len(s) != 64 {
		return h, false
	}

	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, false
	}

	return h, true
}
