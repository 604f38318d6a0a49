package enode

import "testing"

func TestXORDistance_Zero(t *testing.T) {
	var a NodeID
	a[5] = 0x42
	d := XORDistance(a, a)
	if d.Cmp(d) != 0 {
		t.Fatalf("distance to self should compare equal to itself")
	}
}

func TestXORDistance_Ordering(t *testing.T) {
	target := NodeID{}
	near := idWithByte(31, 0x01) // distance 1
	far := idWithByte(0, 0x80)   // distance with high bit set, much larger

	dn := XORDistance(near, target)
	df := XORDistance(far, target)

	if !dn.Less(df) {
		t.Fatalf("expected near to be less than far")
	}
	if df.Less(dn) {
		t.Fatalf("far should not be less than near")
	}
	if dn.Cmp(df) >= 0 {
		t.Fatalf("Cmp(near, far) should be negative")
	}
}

func TestXORDistance_Symmetry(t *testing.T) {
	a := idWithByte(3, 0x55)
	b := idWithByte(10, 0xAA)
	if XORDistance(a, b).Cmp(XORDistance(b, a)) != 0 {
		t.Fatalf("XOR distance should be symmetric")
	}
}
