package discover

import (
	"time"

	"github.com/ethdisc/ktable/enode"
)

// digest correlates a Pong back to the probe that provoked it.
type digest [32]byte

// contest is one outstanding eviction contest: challenger is trying to
// unseat incumbent in bucketIndex. It is keyed by the digest of the Ping
// sent to incumbent.
type contest struct {
	bucketIndex int
	incumbent   enode.Node
	challenger  enode.Node
	deadline    time.Time
}

// pendingProbes is the digest -> contest correlation table from spec.md
// §4.5. It is not safe for concurrent use; the Table's lock guards it.
type pendingProbes struct {
	byDigest map[digest]contest
}

func newPendingProbes() *pendingProbes {
	return &pendingProbes{byDigest: make(map[digest]contest)}
}

// insert records a new contest under digest, overwriting any previous
// entry under the same digest (digests are assumed unique per probe).
func (p *pendingProbes) insert(d digest, c contest) {
	p.byDigest[d] = c
}

// pop removes and returns the contest registered under d, if any.
func (p *pendingProbes) pop(d digest) (contest, bool) {
	c, ok := p.byDigest[d]
	if ok {
		delete(p.byDigest, d)
	}
	return c, ok
}

// size returns the number of outstanding contests.
func (p *pendingProbes) size() int {
	return len(p.byDigest)
}

// expired removes and returns every contest whose deadline is at or before
// now, in no particular order.
func (p *pendingProbes) expired(now time.Time) []contest {
	var out []contest
	for d, c := range p.byDigest {
		if !now.Before(c.deadline) {
			out = append(out, c)
			delete(p.byDigest, d)
		}
	}
	return out
}
