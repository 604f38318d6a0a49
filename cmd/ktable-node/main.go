// Command ktable-node is a small demo binary that wires a discover.Table
// to a real UDP transport.UDPSender, the way go-ethereum's p2p/discover
// package ships both table.go and udp.go so the core is runnable end to
// end rather than a library with no caller.
//
// Usage:
//
//	ktable-node [flags]
//
// Flags:
//
//	-bind                UDP address to listen on (default 0.0.0.0:30303)
//	-id                  local node ID as 64 hex chars (random if empty)
//	-bootstrap           bootstrap peer UDP address; may be repeated
//	-bucket-capacity     k, max entries per bucket (default 16)
//	-id-bits             n, bucket count / ID bit width (default 256)
//	-probe-timeout-ms    pending-probe deadline in ms (default 2000)
//	-refresh-interval-s  seconds between bootstrap refresh sweeps (default 30)
//	-expire-interval-s   seconds between ExpireProbes sweeps (default 1)
//	-verbosity           log level 0-5 (default 3)
//	-version             print version and exit
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethdisc/ktable/discover"
	"github.com/ethdisc/ktable/enode"
	"github.com/ethdisc/ktable/ktlog"
	"github.com/ethdisc/ktable/metrics"
	"github.com/ethdisc/ktable/transport"
)

var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. It accepts CLI
// arguments (without the program name) so it can be exercised from tests
// without touching os.Args.
func run(args []string) int {
	cfg := cliConfig{}
	fs := newFlagSet(&cfg)
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if *showVersion {
		fmt.Printf("ktable-node %s (commit %s)\n", version, commit)
		return 0
	}

	logger := ktlog.New(verbosityToLevel(cfg.verbosity))
	reg := metrics.NewRegistry()

	self, err := resolveSelf(cfg.nodeIDHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	laddr, err := net.ResolveUDPAddr("udp", cfg.bind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -bind %q: %v\n", cfg.bind, err)
		return 1
	}
	sender, err := transport.NewUDPSender(laddr, 0, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer sender.Close()

	tcfg := discover.Config{
		BucketCapacity: cfg.bucketCapacity,
		IDBits:         cfg.idBits,
		ProbeTimeout:   time.Duration(cfg.probeTimeoutMS) * time.Millisecond,
	}
	table := discover.New(self, tcfg, sender, transport.RealClock{}, logger, reg)

	logger.Info("ktable-node starting",
		"version", version,
		"bind", sender.LocalAddr().String(),
		"self", self.String(),
		"bucket_capacity", tcfg.BucketCapacity,
		"id_bits", tcfg.IDBits)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bootstrapNodes := parseBootstrap(cfg.bootstrap)
	for _, n := range bootstrapNodes {
		if _, err := table.RefreshNode(ctx, n); err != nil {
			logger.Warn("bootstrap refresh failed", "endpoint", n.Endpoint.IP.String(), "err", err)
		}
	}

	go func() {
		if err := sender.ServePongs(ctx, table); err != nil && ctx.Err() == nil {
			logger.Error("pong read loop exited", "err", err)
		}
	}()

	refreshTicker := time.NewTicker(time.Duration(cfg.refreshIntervalS) * time.Second)
	defer refreshTicker.Stop()
	expireTicker := time.NewTicker(time.Duration(cfg.expireIntervalS) * time.Second)
	defer expireTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-refreshTicker.C:
			for _, n := range bootstrapNodes {
				table.RefreshNode(ctx, n)
			}
		case <-expireTicker.C:
			if n := table.ExpireProbes(); n > 0 {
				logger.Debug("expired pending probes", "count", n)
			}
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig.String())
			cancel()
			logger.Info("shutdown complete")
			return 0
		}
	}
}

// verbosityToLevel maps the CLI's 0-5 verbosity scale onto slog levels,
// the same banding the teacher's node.VerbosityToLogLevel uses for its
// string-valued log level.
func verbosityToLevel(v int) slog.Level {
	switch {
	case v <= 1:
		return slog.LevelError
	case v == 2:
		return slog.LevelWarn
	case v == 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// resolveSelf parses a 64-hex-char node ID, or generates a random one
// when hexID is empty.
func resolveSelf(hexID string) (enode.NodeID, error) {
	if hexID == "" {
		var id enode.NodeID
		if _, err := rand.Read(id[:]); err != nil {
			return enode.NodeID{}, fmt.Errorf("generate random node id: %w", err)
		}
		return id, nil
	}
	b, err := hex.DecodeString(hexID)
	if err != nil || len(b) != 32 {
		return enode.NodeID{}, fmt.Errorf("-id must be 64 hex chars (32 bytes)")
	}
	var id enode.NodeID
	copy(id[:], b)
	return id, nil
}

// parseBootstrap turns host:port strings into Nodes with a random ID.
// This demo has no handshake protocol to learn a bootstrap peer's real
// ID ahead of time, so each is seeded with a random one. No later Pong
// replaces that ID: ServePongs passes no sender node to HandlePong, so
// the unsolicited-pong path never runs for these peers.
func parseBootstrap(addrs []string) []enode.Node {
	nodes := make([]enode.Node, 0, len(addrs))
	for _, a := range addrs {
		host, portStr, err := net.SplitHostPort(a)
		if err != nil {
			continue
		}
		ip := net.ParseIP(host)
		if ip == nil {
			continue
		}
		var port int
		fmt.Sscanf(portStr, "%d", &port)

		var id enode.NodeID
		rand.Read(id[:])
		nodes = append(nodes, enode.Node{
			ID:       id,
			Endpoint: enode.Endpoint{IP: ip, UDPPort: uint16(port)},
		})
	}
	return nodes
}
