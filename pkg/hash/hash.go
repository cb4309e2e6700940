package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// NumericIDModulus bounds ids derived from opaque storage ids. 2^53 keeps
// them exact in JSON numbers and well inside the contract's uint256.
var NumericIDModulus = new(big.Int).Lsh(big.NewInt(1), 53)

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// Keccak256Hex returns the 0x-prefixed keccak256 hash of the input string.
func Keccak256Hex(input string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(input)))
}

// NumericID maps an opaque storage id to the numeric id the contract expects:
// keccak256(id) mod 2^53. It is deterministic, so the same storage id always
// resolves to the same contract id.
func NumericID(id string) uint64 {
	n := new(big.Int).SetBytes(crypto.Keccak256([]byte(id)))
	return n.Mod(n, NumericIDModulus).Uint64()
}

// CommitHash is the commit-reveal digest keccak256(abi.encodePacked(uint8 vote,
// uint8 confidence, string salt)), 0x-prefixed and lower-case.
func CommitHash(vote, confidence uint8, salt string) string {
	return hexutil.Encode(crypto.Keccak256([]byte{vote}, []byte{confidence}, []byte(salt)))
}

// EqualHex compares two hex digests ignoring case and an optional 0x prefix.
func EqualHex(a, b string) bool {
	trim := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		return strings.TrimPrefix(s, "0x")
	}
	return trim(a) != "" && trim(a) == trim(b)
}
