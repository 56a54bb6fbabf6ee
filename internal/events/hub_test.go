package events

import (
	"testing"
	"time"
)

func TestPerSwapOrdering(t *testing.T) {
	h := New()
	sub := h.Subscribe(16)

	h.Publish("swap-1", SwapCreated, nil)
	h.Publish("swap-1", InvoiceSet, nil)
	h.Publish("swap-1", TransactionMempool, nil)

	want := []Status{SwapCreated, InvoiceSet, TransactionMempool}
	for i, w := range want {
		select {
		case ev := <-sub:
			if ev.Status != w {
				t.Errorf("event %d status = %v, want %v", i, ev.Status, w)
			}
			if ev.SwapID != "swap-1" {
				t.Errorf("event %d swap id = %v, want swap-1", i, ev.SwapID)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestMultipleSubscribersReceiveSameEvents(t *testing.T) {
	h := New()
	subA := h.Subscribe(4)
	subB := h.Subscribe(4)

	h.Publish("swap-1", SwapCreated, map[string]interface{}{"status": "created"})

	for _, sub := range []<-chan SwapEvent{subA, subB} {
		select {
		case ev := <-sub:
			if ev.Status != SwapCreated {
				t.Errorf("status = %v, want %v", ev.Status, SwapCreated)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestIndependentSwapIdsDoNotBlockEachOther(t *testing.T) {
	h := New()
	sub := h.Subscribe(16)

	h.Publish("swap-a", SwapCreated, nil)
	h.Publish("swap-b", SwapCreated, nil)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-sub:
			seen[ev.SwapID] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
	if !seen["swap-a"] || !seen["swap-b"] {
		t.Errorf("seen = %v, want both swap-a and swap-b", seen)
	}
}
