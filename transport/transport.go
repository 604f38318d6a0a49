// Package transport provides a concrete, swappable implementation of the
// routing table's two external collaborators (spec.md §6): a UDP sender
// that issues discv4-style PING packets and correlates PONG replies back
// to discover.Table.HandlePong, and a real-clock implementation of
// discover.Clock. Wire encoding and socket I/O live here precisely
// because spec.md §1 keeps them out of the core.
package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ethdisc/ktable/discover"
	"github.com/ethdisc/ktable/enode"
	"github.com/ethdisc/ktable/ktlog"
	"github.com/ethdisc/ktable/transport/rlp"
	"golang.org/x/crypto/sha3"
)

// RealClock implements discover.Clock over time.Now.
type RealClock struct{}

// Now returns the current wall-clock time.
func (RealClock) Now() time.Time { return time.Now() }

// Ping is the wire representation of a discovery PING packet. It carries
// enough for the peer to address its PONG back to us; the digest used to
// correlate that PONG is the keccak-256 of this struct's RLP encoding,
// computed by Send before the packet goes out.
type Ping struct {
	Version    uint32
	FromIP     []byte
	FromUDP    uint16
	FromTCP    uint16
	ToIP       []byte
	ToUDP      uint16
	ToTCP      uint16
	Expiration uint64
}

// Pong is the wire representation of a discovery PONG packet: an echo of
// the PING digest plus the expiration the sender attaches to its claim.
type Pong struct {
	Digest     [32]byte
	Expiration uint64
}

// digestOf returns the keccak-256 hash of v's RLP encoding, the
// correlation key both the ethereum discv4 wire protocol and spec.md §4.3
// use to tie a Pong back to its Ping.
func digestOf(v interface{}) ([32]byte, error) {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		return [32]byte{}, err
	}
	var d [32]byte
	h := sha3.NewLegacyKeccak256()
	h.Write(enc)
	copy(d[:], h.Sum(nil))
	return d, nil
}

// UDPSender implements discover.Sender over a real net.UDPConn. It also
// runs a read loop that decodes inbound PONG packets and feeds them to a
// discover.Table, which is the glue spec.md §1 deliberately keeps outside
// the routing-table core.
type UDPSender struct {
	conn       *net.UDPConn
	pingExpiry time.Duration
	log        *ktlog.Logger
}

// NewUDPSender binds a UDP socket at laddr and returns a Sender ready to
// issue PINGs. pingExpiry controls the Expiration field stamped on
// outbound PINGs (and is unrelated to discover.Config.ProbeTimeout, which
// governs when the table gives up waiting for a reply).
func NewUDPSender(laddr *net.UDPAddr, pingExpiry time.Duration, logger *ktlog.Logger) (*UDPSender, error) {
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen: %w", err)
	}
	if logger == nil {
		logger = ktlog.Default()
	}
	if pingExpiry <= 0 {
		pingExpiry = 20 * time.Second
	}
	return &UDPSender{conn: conn, pingExpiry: pingExpiry, log: logger.Module("transport")}, nil
}

// LocalAddr returns the address the sender's socket is bound to.
func (s *UDPSender) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Send implements discover.Sender: it encodes a PING addressed to "to",
// writes it to the socket, and returns the keccak-256 digest of the
// encoded packet as the correlation key for the eventual PONG.
func (s *UDPSender) Send(ctx context.Context, msg discover.Ping, to enode.Endpoint) ([32]byte, error) {
	wire := Ping{
		Version:    4,
		FromIP:     []byte(msg.From.IP.To16()),
		FromUDP:    msg.From.UDPPort,
		FromTCP:    msg.From.TCPPort,
		ToIP:       []byte(to.IP.To16()),
		ToUDP:      to.UDPPort,
		ToTCP:      to.TCPPort,
		Expiration: uint64(time.Now().Add(s.pingExpiry).Unix()),
	}
	enc, err := rlp.EncodeToBytes(wire)
	if err != nil {
		return [32]byte{}, fmt.Errorf("transport: encode ping: %w", err)
	}
	digest, err := digestOf(wire)
	if err != nil {
		return [32]byte{}, fmt.Errorf("transport: digest ping: %w", err)
	}

	addr := &net.UDPAddr{IP: to.IP, Port: int(to.UDPPort)}
	if deadline, ok := ctx.Deadline(); ok {
		s.conn.SetWriteDeadline(deadline)
	} else {
		s.conn.SetWriteDeadline(time.Time{})
	}
	if _, err := s.conn.WriteToUDP(enc, addr); err != nil {
		return [32]byte{}, fmt.Errorf("transport: write ping: %w", err)
	}
	return digest, nil
}

// Close releases the underlying socket.
func (s *UDPSender) Close() error { return s.conn.Close() }

// ServePongs reads PONG packets off the socket until ctx is cancelled or
// the socket closes, decoding each one and handing it to table.HandlePong.
// Malformed packets are logged and skipped; they never reach the table.
func (s *UDPSender) ServePongs(ctx context.Context, table *discover.Table) error {
	buf := make([]byte, 1280)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return fmt.Errorf("transport: read: %w", err)
		}

		var wire Pong
		if err := rlp.DecodeBytes(buf[:n], &wire); err != nil {
			s.log.Warn("dropping malformed pong", "err", err)
			continue
		}
		pong := discover.Pong{
			Digest:     wire.Digest,
			Expiration: time.Unix(int64(wire.Expiration), 0),
		}
		if _, err := table.HandlePong(ctx, pong, nil); err != nil {
			s.log.Debug("pong not accepted", "err", err)
		}
	}
}
