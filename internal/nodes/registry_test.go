package nodes

import "testing"

func TestSetGet(t *testing.T) {
	r := New()
	r.Set("BTC", Info{PublicKey: "02abc", URIs: []string{"02abc@1.2.3.4:9735"}})

	info, ok := r.Get("BTC")
	if !ok {
		t.Fatal("expected BTC node info")
	}
	if info.PublicKey != "02abc" {
		t.Errorf("PublicKey = %s, want 02abc", info.PublicKey)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	r := New()
	r.Set("BTC", Info{PublicKey: "02abc"})
	all := r.All()
	all["BTC"] = Info{PublicKey: "mutated"}

	info, _ := r.Get("BTC")
	if info.PublicKey != "02abc" {
		t.Error("All() should return a copy, not a live view")
	}
}
