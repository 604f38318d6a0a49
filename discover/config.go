// Package discover implements the routing table core: k-buckets indexed by
// XOR distance from a local node ID, the liveness-probe contest that
// decides evictions when a bucket is full, and the pending-probes
// correlation table that ties a Pong back to the contest it answers.
package discover

import "time"

// Config controls the shape and timing of a Table. Zero-value fields are
// replaced with the defaults below by applyDefaults.
type Config struct {
	// BucketCapacity is k, the maximum number of live entries per bucket.
	// Default: 16.
	BucketCapacity int

	// IDBits is n, the bit width of a NodeID and therefore the number of
	// buckets in the table. Default: 256.
	IDBits int

	// ProbeTimeout is how long a pending probe may wait for a Pong before
	// ExpireProbes resolves it in the challenger's favor. Default: 2s.
	ProbeTimeout time.Duration

	// MaxReplacements bounds each bucket's replacement cache. Default: 10.
	MaxReplacements int

	// IPLimitPerBucket caps how many entries in one bucket may share an
	// address subnet. 0 disables the limit. Default: 0.
	IPLimitPerBucket int
}

// DefaultConfig returns a Config with standard defaults.
func DefaultConfig() Config {
	return Config{
		BucketCapacity:   16,
		IDBits:           256,
		ProbeTimeout:     2 * time.Second,
		MaxReplacements:  10,
		IPLimitPerBucket: 0,
	}
}

func (c *Config) applyDefaults() {
	if c.BucketCapacity <= 0 {
		c.BucketCapacity = 16
	}
	if c.IDBits <= 0 {
		c.IDBits = 256
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 2 * time.Second
	}
	if c.MaxReplacements <= 0 {
		c.MaxReplacements = 10
	}
	if c.IPLimitPerBucket < 0 {
		c.IPLimitPerBucket = 0
	}
}
