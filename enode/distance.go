package enode

import "github.com/holiman/uint256"

// Distance is the XOR distance between two NodeIDs, interpreted as a
// big-endian unsigned 256-bit integer. It implements the total order
// spec.md calls distance_order: n1 <= n2 iff XOR(n1.id, target) <= XOR(n2.id, target).
type Distance struct {
	v uint256.Int
}

// XORDistance computes the XOR distance between a and b.
func XORDistance(a, b NodeID) Distance {
	var x, y uint256.Int
	x.SetBytes32(a[:])
	y.SetBytes32(b[:])
	var d Distance
	d.v.Xor(&x, &y)
	return d
}

// Cmp returns -1, 0, or 1 as d is less than, equal to, or greater than o.
func (d Distance) Cmp(o Distance) int {
	return d.v.Cmp(&o.v)
}

// Less reports whether d is strictly closer (smaller) than o.
func (d Distance) Less(o Distance) bool {
	return d.v.Lt(&o.v)
}
