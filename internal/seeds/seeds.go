// Package seeds implements the deterministic key schedule of the darkpool.
// Every derivation is a pure function of a seed and an index, so re-running a
// derivation always reproduces the same value. Persistence of stream counters
// belongs to the store; this package never touches storage.
package seeds

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// StreamSelector names one of an account's derivation streams
type StreamSelector string

const (
	// StreamRecoverySeed derives per-object recovery stream seeds
	StreamRecoverySeed StreamSelector = "recovery-seed-csprng"

	// StreamShareSeed derives per-object share stream seeds
	StreamShareSeed StreamSelector = "share-seed-csprng"
)

const (
	recoveryIDTag = "recovery-id"
	nullifierTag  = "nullifier"
	shareTag      = "share"
)

// scalarModulus is the BN254 scalar field order. All derived values are
// reduced into this field.
var scalarModulus, _ = new(big.Int).SetString(
	"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// HashToScalar maps an arbitrary message into the scalar field. Two keccak
// rounds widen the digest to 64 bytes before reduction so the output is
// statistically uniform over the field.
func HashToScalar(msg []byte) *big.Int {
	first := crypto.Keccak256(msg)
	second := crypto.Keccak256(first)

	wide := make([]byte, 0, 64)
	wide = append(wide, first...)
	wide = append(wide, second...)

	out := new(big.Int).SetBytes(wide)
	return out.Mod(out, scalarModulus)
}

// DeriveStreamSeed derives the index-th child seed of the selected stream.
// Same (seed, selector, index) in, same scalar out.
func DeriveStreamSeed(master *big.Int, selector StreamSelector, index uint64) *big.Int {
	msg := make([]byte, 0, 32+len(selector)+8)
	msg = append(msg, pad32(master)...)
	msg = append(msg, []byte(selector)...)
	msg = appendIndex(msg, index)
	return HashToScalar(msg)
}

// RecoveryID derives the public recovery identifier emitted on-chain for the
// object identified by recoveryStreamSeed
func RecoveryID(recoveryStreamSeed *big.Int) *big.Int {
	msg := make([]byte, 0, 32+len(recoveryIDTag))
	msg = append(msg, pad32(recoveryStreamSeed)...)
	msg = append(msg, []byte(recoveryIDTag)...)
	return HashToScalar(msg)
}

// Nullifier derives the spend nullifier of a specific version of the object
// identified by recoveryStreamSeed
func Nullifier(recoveryStreamSeed *big.Int, version uint64) *big.Int {
	msg := make([]byte, 0, 32+len(nullifierTag)+8)
	msg = append(msg, pad32(recoveryStreamSeed)...)
	msg = append(msg, []byte(nullifierTag)...)
	msg = appendIndex(msg, version)
	return HashToScalar(msg)
}

// ParseScalar parses a base-10 scalar string as stored and transported. The
// value must be a non-negative integer below the field order.
func ParseScalar(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid scalar %q", s)
	}
	if v.Sign() < 0 || v.Cmp(scalarModulus) >= 0 {
		return nil, fmt.Errorf("scalar %q outside field", s)
	}
	return v, nil
}

// FormatScalar renders a scalar in the base-10 form used for storage and
// transport. Round-trips exactly with ParseScalar.
func FormatScalar(v *big.Int) string {
	return v.Text(10)
}

// FormatScalars renders a slice of scalars in storage form
func FormatScalars(vs []*big.Int) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = FormatScalar(v)
	}
	return out
}

// pad32 encodes v as a 32-byte big-endian value
func pad32(v *big.Int) []byte {
	return v.FillBytes(make([]byte, 32))
}

func appendIndex(msg []byte, index uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], index)
	return append(msg, buf[:]...)
}
