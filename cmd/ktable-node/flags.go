package main

import "flag"

// cliConfig holds every flag this command accepts, bound directly to a
// flag.FlagSet the way eth2030's own cmd/eth2030/flags.go wires a
// node.Config.
type cliConfig struct {
	bind             string
	nodeIDHex        string
	bootstrap        stringList
	bucketCapacity   int
	idBits           int
	probeTimeoutMS   int
	refreshIntervalS int
	expireIntervalS  int
	verbosity        int
}

// stringList implements flag.Value, collecting one entry per repeated
// -bootstrap flag instead of overwriting a single string.
type stringList []string

func (l *stringList) String() string {
	if l == nil {
		return ""
	}
	out := ""
	for i, s := range *l {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

func (l *stringList) Set(s string) error {
	*l = append(*l, s)
	return nil
}

// newFlagSet builds a flag.FlagSet bound to cfg, mirroring the teacher's
// ContinueOnError convention so callers (and tests) control error handling.
func newFlagSet(cfg *cliConfig) *flag.FlagSet {
	fs := flag.NewFlagSet("ktable-node", flag.ContinueOnError)
	fs.StringVar(&cfg.bind, "bind", "0.0.0.0:30303", "UDP address to listen on for discovery traffic")
	fs.StringVar(&cfg.nodeIDHex, "id", "", "local node ID as 64 hex chars (random if empty)")
	fs.Var(&cfg.bootstrap, "bootstrap", "bootstrap peer UDP address (host:port); may be repeated")
	fs.IntVar(&cfg.bucketCapacity, "bucket-capacity", 16, "k, the maximum live entries per bucket")
	fs.IntVar(&cfg.idBits, "id-bits", 256, "n, the bit width of a node ID and bucket count")
	fs.IntVar(&cfg.probeTimeoutMS, "probe-timeout-ms", 2000, "milliseconds to wait for a pong before the challenger wins")
	fs.IntVar(&cfg.refreshIntervalS, "refresh-interval-s", 30, "seconds between bootstrap-peer refresh sweeps")
	fs.IntVar(&cfg.expireIntervalS, "expire-interval-s", 1, "seconds between ExpireProbes sweeps")
	fs.IntVar(&cfg.verbosity, "verbosity", 3, "log level 0-5 (0-1=errors only, 5=debug)")
	return fs
}
