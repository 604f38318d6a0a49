package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ethdisc/ktable/discover"
	"github.com/ethdisc/ktable/enode"
)

func mustSender(t *testing.T) *UDPSender {
	t.Helper()
	s, err := NewUDPSender(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0}, 0, nil)
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUDPSender_SendReturnsNonZeroDigest(t *testing.T) {
	a := mustSender(t)
	b := mustSender(t)

	from := enode.Endpoint{IP: net.ParseIP("127.0.0.1"), UDPPort: 1}
	to := enode.Endpoint{IP: net.ParseIP("127.0.0.1"), UDPPort: uint16(b.LocalAddr().(*net.UDPAddr).Port)}

	d1, err := a.Send(context.Background(), discover.Ping{From: from, To: to}, to)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if d1 == ([32]byte{}) {
		t.Fatalf("digest must not be zero")
	}
}

func TestRealClock_Monotonic(t *testing.T) {
	c := RealClock{}
	t1 := c.Now()
	time.Sleep(time.Millisecond)
	t2 := c.Now()
	if !t2.After(t1) {
		t.Fatalf("RealClock.Now() did not advance")
	}
}
