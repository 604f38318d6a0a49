package discover

import (
	"net"

	"github.com/ethdisc/ktable/enode"
)

// Outcome is the result of feeding a sighting into a bucket's refresh_node
// decision table.
type Outcome int

const (
	// Reordered means the node was already a member; it moved to the tail
	// (most-recently-seen end) of the bucket.
	Reordered Outcome = iota
	// Inserted means the node was new and the bucket had a free slot.
	Inserted
	// Full means the node was new but the bucket is at capacity; the node
	// bucket.refresh returns alongside it is the least-recently-seen
	// incumbent that must now be challenged.
	Full
	// Ignored means the sighting was the local node's own ID and was
	// silently dropped per spec.md §4.4 step 1 / §7's InvalidNode — never
	// an error, and never touches any bucket.
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Reordered:
		return "reordered"
	case Inserted:
		return "inserted"
	case Full:
		return "full"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// bucket holds the live entries and the replacement cache for one
// XOR-distance bucket. It is not safe for concurrent use; callers (the
// Table) serialize access with their own lock.
type bucket struct {
	entries      []enode.Node
	replacements []enode.Node
}

// member reports whether id is a live entry of the bucket.
func (b *bucket) member(id enode.NodeID) bool {
	for _, e := range b.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// nodes returns a copy of the bucket's live entries, ordered from
// least-recently-seen (head) to most-recently-seen (tail).
func (b *bucket) nodes() []enode.Node {
	out := make([]enode.Node, len(b.entries))
	copy(out, b.entries)
	return out
}

// refresh applies the three-outcome decision table against node, subject to
// capacity. It never mutates the bucket when the outcome is Full: the
// caller must resolve the eviction contest before entries change.
func (b *bucket) refresh(node enode.Node, capacity int) (Outcome, enode.Node) {
	for i, e := range b.entries {
		if e.ID == node.ID {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			b.entries = append(b.entries, node)
			return Reordered, enode.Node{}
		}
	}
	if len(b.entries) < capacity {
		b.entries = append(b.entries, node)
		return Inserted, enode.Node{}
	}
	return Full, b.entries[0]
}

// remove deletes id from the bucket's live entries, promoting the oldest
// replacement-cache entry into the freed slot if one is available. It
// reports whether id was present.
func (b *bucket) remove(id enode.NodeID) bool {
	for i, e := range b.entries {
		if e.ID == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			if len(b.replacements) > 0 {
				b.entries = append(b.entries, b.replacements[0])
				b.replacements = b.replacements[1:]
			}
			return true
		}
	}
	return false
}

// bumpToTail moves an existing live entry to the tail without going through
// the full decision table, used when a contest resolves in the incumbent's
// favor (it stays, but is now the freshest sighting).
func (b *bucket) bumpToTail(id enode.NodeID) {
	for i, e := range b.entries {
		if e.ID == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			b.entries = append(b.entries, e)
			return
		}
	}
}

// replace removes incumbent from the live entries (if present) and inserts
// challenger at the tail, used when a contest resolves in the challenger's
// favor. The freed slot is not handed to the replacement cache: the
// challenger itself fills it.
func (b *bucket) replace(incumbent enode.NodeID, challenger enode.Node) {
	for i, e := range b.entries {
		if e.ID == incumbent {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			break
		}
	}
	b.entries = append(b.entries, challenger)
	b.dropReplacement(challenger.ID)
}

// addReplacement records node in the bucket's replacement cache, updating
// it in place if already present. The cache is bounded to max entries,
// dropping the oldest when full.
func (b *bucket) addReplacement(node enode.Node, max int) {
	for i, e := range b.replacements {
		if e.ID == node.ID {
			b.replacements[i] = node
			return
		}
	}
	if len(b.replacements) >= max {
		b.replacements = b.replacements[1:]
	}
	b.replacements = append(b.replacements, node)
}

// dropReplacement removes id from the replacement cache, if present.
func (b *bucket) dropReplacement(id enode.NodeID) {
	for i, e := range b.replacements {
		if e.ID == id {
			b.replacements = append(b.replacements[:i], b.replacements[i+1:]...)
			return
		}
	}
}

// ipOverLimit reports whether adding a node at ip would push the bucket's
// same-subnet count past limit, and if so returns the oldest live entry
// sharing that subnet as the eviction candidate. limit <= 0 disables the
// check entirely.
func (b *bucket) ipOverLimit(ip net.IP, limit int) (enode.Node, bool) {
	if limit <= 0 {
		return enode.Node{}, false
	}
	key := subnetKey(ip)
	if key == "" {
		return enode.Node{}, false
	}
	count := 0
	var oldest enode.Node
	found := false
	for _, e := range b.entries {
		if subnetKey(e.Endpoint.IP) == key {
			count++
			if !found {
				oldest = e
				found = true
			}
		}
	}
	if count >= limit && found {
		return oldest, true
	}
	return enode.Node{}, false
}

// subnetKey returns a string identifying the /24 (IPv4) or /64 (IPv6)
// subnet containing ip, or "" if ip is nil or malformed.
func subnetKey(ip net.IP) string {
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		mask := net.CIDRMask(24, 32)
		return v4.Mask(mask).String()
	}
	v6 := ip.To16()
	if v6 == nil {
		return ""
	}
	mask := net.CIDRMask(64, 128)
	return v6.Mask(mask).String()
}
