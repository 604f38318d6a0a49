package discover

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethdisc/ktable/enode"
	"github.com/ethdisc/ktable/ktlog"
	"github.com/ethdisc/ktable/metrics"
)

// Ping is the probe payload sent to an incumbent during an eviction
// contest. The routing table treats its wire representation as an
// external concern (see the transport package); this struct only carries
// what a Sender needs to address the probe.
type Ping struct {
	From enode.Endpoint
	To   enode.Endpoint
}

// Sender issues a Ping to an endpoint and returns the digest that the
// matching Pong will carry, so a later HandlePong call can be correlated
// back to this probe. Implementations own all wire encoding and socket
// I/O; the routing table never touches bytes on the network.
type Sender interface {
	Send(ctx context.Context, msg Ping, to enode.Endpoint) (digest [32]byte, err error)
}

// Clock abstracts wall-clock time so probe deadlines can be tested without
// sleeping.
type Clock interface {
	Now() time.Time
}

// systemClock is the default Clock, backed by time.Now.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Table is the routing table core: cfg.IDBits buckets indexed by XOR
// distance from self, plus the pending-probes table that tracks
// outstanding eviction contests. All state transitions serialize through
// mu; spec.md §5 requires that a send decision and the pending-probes
// commit it produces land in the same logical step, which a single mutex
// gives for free without an internally spawned goroutine.
type Table struct {
	mu      sync.Mutex
	self    enode.NodeID
	cfg     Config
	buckets []*bucket
	pending *pendingProbes

	sender Sender
	clock  Clock
	log    *ktlog.Logger
	met    tableMetrics
}

// New creates a Table for the local node self. sender and clock must be
// non-nil; logger and reg may be nil, in which case a default logger and
// a private registry are used.
func New(self enode.NodeID, cfg Config, sender Sender, clock Clock, logger *ktlog.Logger, reg *metrics.Registry) *Table {
	cfg.applyDefaults()
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = ktlog.Default()
	}
	buckets := make([]*bucket, cfg.IDBits)
	for i := range buckets {
		buckets[i] = &bucket{}
	}
	return &Table{
		self:    self,
		cfg:     cfg,
		buckets: buckets,
		pending: newPendingProbes(),
		sender:  sender,
		clock:   clock,
		log:     logger.Module("discover"),
		met:     newTableMetrics(reg),
	}
}

// Self returns the local node ID.
func (t *Table) Self() enode.NodeID { return t.self }

// Config returns a copy of the table's configuration.
func (t *Table) Config() Config { return t.cfg }

// Buckets returns the number of buckets in the table (cfg.IDBits).
func (t *Table) Buckets() int { return len(t.buckets) }

// BucketIndex returns the bucket id holds relative to self:
// common_prefix_length(self, id), per spec.md §3's bucket_index formula,
// capped at the last bucket when the table has fewer buckets than that.
// It returns ErrSelf when id equals self.
func (t *Table) BucketIndex(id enode.NodeID) (int, error) {
	if id == t.self {
		return -1, ErrSelf
	}
	return t.indexFor(id), nil
}

// indexFor computes the bucket index for id without rejecting id == self.
// Neighbours uses it directly: a query for the neighbours of the local
// node's own ID is a legitimate read, unlike inserting the local node as
// an entry.
func (t *Table) indexFor(id enode.NodeID) int {
	idx := enode.CommonPrefixLength(t.self, id)
	if idx >= len(t.buckets) {
		idx = len(t.buckets) - 1
	}
	return idx
}

// Member reports whether id is currently a live entry of the table.
func (t *Table) Member(id enode.NodeID) bool {
	idx, err := t.BucketIndex(id)
	if err != nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buckets[idx].member(id)
}

// NodesAt returns a copy of the live entries in bucket idx, ordered
// least- to most-recently-seen.
func (t *Table) NodesAt(idx int) []enode.Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.buckets) {
		return nil
	}
	return t.buckets[idx].nodes()
}

// PendingProbes returns the number of outstanding eviction contests.
func (t *Table) PendingProbes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending.size()
}

// RefreshNode feeds a sighting of node into the table: refreshing its
// bucket per spec.md's three-outcome decision table. A Full outcome means
// the bucket had no room, so an eviction contest was started against the
// least-recently-seen incumbent (or, when IP-diversity limiting is
// enabled and node's subnet is over-represented, against the oldest
// same-subnet entry instead). node is always recorded in the bucket's
// replacement cache when the outcome is Full, so it can be promoted later
// even if this particular contest is lost.
//
// A sighting of the local node's own ID is step 1 of spec.md §4.4: always
// a silent no-op (Ignored, nil), never ErrSelf — §7 classifies this as
// InvalidNode, which is explicitly not an error.
func (t *Table) RefreshNode(ctx context.Context, node enode.Node) (Outcome, error) {
	if node.ID == t.self {
		return Ignored, nil
	}
	idx := t.indexFor(node.ID)

	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.buckets[idx]

	if !b.member(node.ID) {
		if cand, over := b.ipOverLimit(node.Endpoint.IP, t.cfg.IPLimitPerBucket); over {
			b.addReplacement(node, t.cfg.MaxReplacements)
			return t.startContest(ctx, idx, cand, node)
		}
	}

	outcome, candidate := b.refresh(node, t.cfg.BucketCapacity)
	switch outcome {
	case Reordered:
		t.met.nodesReordered.Inc()
		return Reordered, nil
	case Inserted:
		t.met.nodesInserted.Inc()
		return Inserted, nil
	default: // Full
		b.addReplacement(node, t.cfg.MaxReplacements)
		return t.startContest(ctx, idx, candidate, node)
	}
}

// startContest pings incumbent and, on success, records the contest in
// the pending-probes table so a later Pong (or ExpireProbes timeout) can
// resolve it. The caller holds t.mu, so the send and the pending-probes
// insert happen in one critical section. It always returns Full: the
// bucket is unchanged until the contest resolves.
func (t *Table) startContest(ctx context.Context, idx int, incumbent, challenger enode.Node) (Outcome, error) {
	d, err := t.sender.Send(ctx, Ping{To: incumbent.Endpoint}, incumbent.Endpoint)
	if err != nil {
		t.met.sendFailures.Inc()
		return Full, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	t.pending.insert(digest(d), contest{
		bucketIndex: idx,
		incumbent:   incumbent,
		challenger:  challenger,
		deadline:    t.clock.Now().Add(t.cfg.ProbeTimeout),
	})
	t.met.pendingProbes.Set(int64(t.pending.size()))

	t.met.probesSent.Inc()
	t.log.Debug("eviction contest started",
		"bucket", idx,
		"incumbent", incumbent.ID.String(),
		"challenger", challenger.ID.String())
	return Full, nil
}

// RemoveNode deletes id from the table, promoting a replacement-cache
// entry into the freed slot if one is available. It is a no-op if id is
// not currently a member.
func (t *Table) RemoveNode(id enode.NodeID) error {
	idx, err := t.BucketIndex(id)
	if err != nil {
		return err
	}
	t.mu.Lock()
	removed := t.buckets[idx].remove(id)
	t.mu.Unlock()
	if removed {
		t.met.nodesRemoved.Inc()
	}
	return nil
}

// Pong is the decoded response to a probe Ping. Expiration is the
// sender's UNIX-seconds claim of how long the Pong should be considered
// valid; a Pong whose Expiration has already passed is treated as stale
// regardless of whether its digest matches a pending contest.
type Pong struct {
	Digest     [32]byte
	Expiration time.Time
}

// PongOutcome classifies how HandlePong resolved an incoming Pong.
type PongOutcome int

const (
	// PongDropped means the pong matched no pending contest (or arrived
	// stale) and had no accepted unsolicited node; the table is unchanged
	// beyond popping any matching pending entry.
	PongDropped PongOutcome = iota
	// PongIncumbentWon means a fresh pong matched a pending contest and
	// the incumbent was refreshed; the challenger was discarded.
	PongIncumbentWon
	// PongUnsolicitedAccepted means a fresh pong carried no matching
	// digest but handlerNode was supplied and accepted via RefreshNode.
	PongUnsolicitedAccepted
)

// HandlePong implements spec.md §4.4's handle_pong decision table:
//
//  1. Pop any pending contest keyed by pong.Digest.
//  2. If one was found and pong is fresh (Expiration is after now),
//     the incumbent wins: refresh_node(incumbent) runs, moving it to
//     its bucket's tail (or re-inserting it, if an intervening
//     RemoveNode already evicted it — spec.md calls this intentional),
//     and the challenger is dropped from the replacement cache.
//  3. Else if handlerNode is non-nil and pong is fresh, treat this as an
//     unsolicited first-contact pong: refresh_node(*handlerNode) runs,
//     without requiring a matching pending probe (spec.md §9 Open
//     Question 3 — the looser original behavior is preserved).
//  4. Else the pong is silently dropped.
//
// ErrUnknownDigest is returned only when the digest matched nothing at
// all (the probe already expired, or never existed) and no unsolicited
// node was accepted in its place; callers may log it but it is never a
// failure requiring recovery, per spec.md §7.
func (t *Table) HandlePong(ctx context.Context, pong Pong, handlerNode *enode.Node) (PongOutcome, error) {
	t.mu.Lock()
	c, ok := t.pending.pop(digest(pong.Digest))
	t.met.pendingProbes.Set(int64(t.pending.size()))
	t.mu.Unlock()

	fresh := pong.Expiration.After(t.clock.Now())

	switch {
	case ok && fresh:
		outcome, err := t.RefreshNode(ctx, c.incumbent)
		t.mu.Lock()
		t.buckets[c.bucketIndex].dropReplacement(c.challenger.ID)
		t.mu.Unlock()
		t.met.contestsWon.Inc()
		t.log.Debug("eviction contest resolved for incumbent",
			"bucket", c.bucketIndex,
			"incumbent", c.incumbent.ID.String(),
			"challenger", c.challenger.ID.String(),
			"refresh_outcome", outcome.String())
		return PongIncumbentWon, err

	case handlerNode != nil && fresh:
		if _, err := t.RefreshNode(ctx, *handlerNode); err != nil {
			return PongUnsolicitedAccepted, err
		}
		t.log.Debug("unsolicited pong accepted", "node", handlerNode.ID.String())
		return PongUnsolicitedAccepted, nil

	default:
		t.met.pongsUnmatched.Inc()
		if fresh && !ok {
			// A fresh pong that matches nothing is the only drop case
			// worth surfacing; a stale pong is expected background noise
			// (the contest, if any, will resolve through ExpireProbes)
			// and is never an error per spec.md §7.
			return PongDropped, ErrUnknownDigest
		}
		return PongDropped, nil
	}
}

// ExpireProbes resolves every pending contest whose deadline has passed
// as of the current Clock reading in the challenger's favor: the
// incumbent is evicted and the challenger takes its place. It returns the
// number of contests resolved this way. Callers are expected to invoke it
// periodically (spec.md's Open Question on probe expiry is resolved as a
// pull, not an internally scheduled goroutine, to keep the table free of
// background concurrency).
func (t *Table) ExpireProbes() int {
	t.mu.Lock()
	expired := t.pending.expired(t.clock.Now())
	t.met.pendingProbes.Set(int64(t.pending.size()))
	t.mu.Unlock()

	for _, c := range expired {
		t.mu.Lock()
		b := t.buckets[c.bucketIndex]
		if b.member(c.incumbent.ID) && !b.member(c.challenger.ID) {
			b.replace(c.incumbent.ID, c.challenger)
		} else {
			b.remove(c.incumbent.ID)
			b.dropReplacement(c.challenger.ID)
			b.refresh(c.challenger, t.cfg.BucketCapacity)
		}
		t.mu.Unlock()

		t.met.contestsLost.Inc()
		t.log.Debug("eviction contest resolved for challenger",
			"bucket", c.bucketIndex,
			"incumbent", c.incumbent.ID.String(),
			"challenger", c.challenger.ID.String())
	}
	return len(expired)
}

// Neighbours implements spec.md §4.4's neighbours algorithm: seed from the
// bucket target itself would occupy, then walk outward one step at a time
// adding the bucket on each side, stopping once both sides run out of
// range or the accumulator exceeds n. The result is then sorted by
// ascending XOR distance to target and truncated to n. n <= 0 defaults to
// the table's configured bucket capacity (K), matching "up to K" in the
// distilled spec.
func (t *Table) Neighbours(target enode.NodeID, n int) []enode.Node {
	if n <= 0 {
		n = t.cfg.BucketCapacity
	}

	t.mu.Lock()
	i := t.indexFor(target)
	acc := append([]enode.Node{}, t.buckets[i].entries...)
	for step := 1; ; step++ {
		lo, hi := i-step, i+step
		loOK := lo >= 0
		hiOK := hi < len(t.buckets)
		if !loOK && !hiOK {
			break
		}
		if loOK {
			acc = append(acc, t.buckets[lo].entries...)
		}
		if hiOK {
			acc = append(acc, t.buckets[hi].entries...)
		}
		if len(acc) > n {
			break
		}
	}
	t.mu.Unlock()

	sort.Slice(acc, func(i, j int) bool {
		di := enode.XORDistance(acc[i].ID, target)
		dj := enode.XORDistance(acc[j].ID, target)
		return di.Less(dj)
	})
	if len(acc) > n {
		acc = acc[:n]
	}
	return acc
}
