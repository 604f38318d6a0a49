package rlp

import "testing"

type testPing struct {
	Version uint32
	IP      []byte
	UDPPort uint16
	TCPPort uint16
}

func TestEncodeDecodeStruct_RoundTrip(t *testing.T) {
	want := testPing{Version: 4, IP: []byte{10, 0, 0, 1}, UDPPort: 30303, TCPPort: 30303}

	enc, err := EncodeToBytes(want)
	if err != nil {
		t.Fatalf("EncodeToBytes: %v", err)
	}

	var got testPing
	if err := DecodeBytes(enc, &got); err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if got.Version != want.Version || got.UDPPort != want.UDPPort || got.TCPPort != want.TCPPort {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if string(got.IP) != string(want.IP) {
		t.Fatalf("IP = %v, want %v", got.IP, want.IP)
	}
}

func TestEncodeDecodeByteArray_RoundTrip(t *testing.T) {
	type withDigest struct {
		Digest [32]byte
	}
	var want withDigest
	for i := range want.Digest {
		want.Digest[i] = byte(i)
	}

	enc, err := EncodeToBytes(want)
	if err != nil {
		t.Fatalf("EncodeToBytes: %v", err)
	}
	var got withDigest
	if err := DecodeBytes(enc, &got); err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if got.Digest != want.Digest {
		t.Fatalf("Digest = %x, want %x", got.Digest, want.Digest)
	}
}

func TestDecodeBytes_TruncatedInput(t *testing.T) {
	if err := DecodeBytes([]byte{0xf8, 0xff}, &testPing{}); err == nil {
		t.Fatalf("expected an error decoding a long list whose payload is truncated")
	}
}
