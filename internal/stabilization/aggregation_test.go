package stabilization

import (
	"strconv"
	"testing"
)

func TestAggregationDedupesIdenticalReads(t *testing.T) {
	bs := newBundleStore(defaultMaxBundles, defaultMaxBundleItems)
	meta1 := bs.AddRead("agg-1", "file", "/tmp/a.py", "same\ncontent\n")
	meta2 := bs.AddRead("agg-1", "file", "/tmp/a.py", "same\ncontent\n")

	if meta1.ContextBundleID != meta2.ContextBundleID {
		t.Fatalf("expected identical reads to share a bundle id, got %q and %q", meta1.ContextBundleID, meta2.ContextBundleID)
	}
	if meta2.BundleItems != 1 {
		t.Fatalf("expected a repeated identical read not to grow the bundle, got %d items", meta2.BundleItems)
	}
}

func TestAggregationDistinctReadsGrowBundle(t *testing.T) {
	bs := newBundleStore(defaultMaxBundles, defaultMaxBundleItems)
	bs.AddRead("agg-2", "file", "/tmp/a.py", "one")
	meta := bs.AddRead("agg-2", "file", "/tmp/b.py", "two")

	if meta.BundleItems != 2 {
		t.Fatalf("expected two distinct items, got %d", meta.BundleItems)
	}
}

func TestBundlesStoreIsCappedGlobally(t *testing.T) {
	bs := newBundleStore(32, defaultMaxBundleItems)
	for i := 0; i < 200; i++ {
		bs.AddRead("session-"+strconv.Itoa(i), "file", "/tmp/"+strconv.Itoa(i)+".py", "abc")
	}
	if len(bs.byKey) > 32 {
		t.Fatalf("expected at most 32 tracked bundles, got %d", len(bs.byKey))
	}
}

func TestBundleItemsAreCappedPerSession(t *testing.T) {
	bs := newBundleStore(defaultMaxBundles, 16)
	for i := 0; i < 200; i++ {
		bs.AddRead("session-fixed", "file", "/tmp/"+strconv.Itoa(i)+".py", "content-"+strconv.Itoa(i))
	}
	b := bs.byKey["session-fixed"]
	if len(b.items) > 16 {
		t.Fatalf("expected at most 16 bundle items, got %d", len(b.items))
	}
	if len(b.seen) > 16 {
		t.Fatalf("expected at most 16 seen entries, got %d", len(b.seen))
	}
}
