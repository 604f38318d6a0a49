package enode

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

// ErrInvalidPubkey is returned by DeriveID when the supplied bytes are not
// a valid uncompressed secp256k1 public key.
var ErrInvalidPubkey = errors.New("enode: invalid secp256k1 public key")

// DeriveID computes a NodeID from a 64-byte uncompressed secp256k1 public
// key (X||Y, no leading format byte), the convention used by the Ethereum
// discovery v4 protocol: NodeID = keccak256(pubkey).
//
// The routing table itself treats NodeID derivation as an external
// capability (spec.md §6); this function is the reference implementation
// used by the transport package and by tests.
func DeriveID(pubkey []byte) (NodeID, error) {
	if len(pubkey) != 64 {
		return NodeID{}, fmt.Errorf("enode: public key must be 64 bytes, got %d: %w", len(pubkey), ErrInvalidPubkey)
	}

	// Validate the point lies on the secp256k1 curve before trusting it as
	// an identity. ParsePubKey wants the leading format byte.
	uncompressed := make([]byte, 65)
	uncompressed[0] = 0x04
	copy(uncompressed[1:], pubkey)
	if _, err := secp256k1.ParsePubKey(uncompressed); err != nil {
		return NodeID{}, fmt.Errorf("%w: %v", ErrInvalidPubkey, err)
	}

	h := sha3.NewLegacyKeccak256()
	h.Write(pubkey)
	var id NodeID
	copy(id[:], h.Sum(nil))
	return id, nil
}
