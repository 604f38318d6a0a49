package discover

import (
	"testing"
	"time"
)

func TestPendingProbes_InsertPop(t *testing.T) {
	p := newPendingProbes()
	d := digest{1}
	c := contest{bucketIndex: 5, incumbent: node(1, "10.0.0.1"), challenger: node(2, "10.0.0.2")}
	p.insert(d, c)

	if p.size() != 1 {
		t.Fatalf("size = %d, want 1", p.size())
	}
	got, ok := p.pop(d)
	if !ok {
		t.Fatalf("pop reported missing digest")
	}
	if got.bucketIndex != 5 {
		t.Fatalf("bucketIndex = %d, want 5", got.bucketIndex)
	}
	if p.size() != 0 {
		t.Fatalf("size after pop = %d, want 0", p.size())
	}
}

func TestPendingProbes_PopUnknownDigest(t *testing.T) {
	p := newPendingProbes()
	if _, ok := p.pop(digest{9}); ok {
		t.Fatalf("pop reported success for a digest never inserted")
	}
}

func TestPendingProbes_Expired(t *testing.T) {
	p := newPendingProbes()
	base := time.Unix(1000, 0)

	p.insert(digest{1}, contest{incumbent: node(1, "a"), deadline: base.Add(-time.Second)})
	p.insert(digest{2}, contest{incumbent: node(2, "b"), deadline: base.Add(time.Hour)})
	p.insert(digest{3}, contest{incumbent: node(3, "c"), deadline: base})

	expired := p.expired(base)
	if len(expired) != 2 {
		t.Fatalf("expired count = %d, want 2 (deadlines at or before base)", len(expired))
	}
	if p.size() != 1 {
		t.Fatalf("size after expiry = %d, want 1 remaining", p.size())
	}
	if _, ok := p.pop(digest{2}); !ok {
		t.Fatalf("the not-yet-due contest should remain pending")
	}
}
