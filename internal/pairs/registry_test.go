package pairs

import "testing"

func TestUpsertIsInsertOnlyIfAbsent(t *testing.T) {
	r := New()
	r.Upsert(Pair{Base: "BTC", Quote: "BTC", TimeoutBlockDelta: 144})
	r.Upsert(Pair{Base: "BTC", Quote: "BTC", TimeoutBlockDelta: 9999})

	p, ok := r.Get("BTC/BTC")
	if !ok {
		t.Fatal("pair not found")
	}
	if p.TimeoutBlockDelta != 144 {
		t.Errorf("TimeoutBlockDelta = %d, want 144 (second Upsert should not overwrite)", p.TimeoutBlockDelta)
	}
}

func TestGetMissing(t *testing.T) {
	r := New()
	if _, ok := r.Get("LTC/BTC"); ok {
		t.Error("expected missing pair")
	}
}

func TestList(t *testing.T) {
	r := New()
	r.Upsert(Pair{Base: "BTC", Quote: "BTC"})
	r.Upsert(Pair{Base: "LTC", Quote: "BTC"})
	if len(r.List()) != 2 {
		t.Errorf("List() length = %d, want 2", len(r.List()))
	}
}
