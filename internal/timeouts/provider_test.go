package timeouts

import (
	"testing"
	"time"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
)

func TestSetGetTimeout(t *testing.T) {
	p := New()
	p.SetTimeout("BTC/BTC", Buy, false, 144)
	if got := p.GetTimeout("BTC/BTC", Buy, false); got != 144 {
		t.Errorf("GetTimeout = %d, want 144", got)
	}
	if got := p.GetTimeout("BTC/BTC", Sell, false); got != 0 {
		t.Errorf("GetTimeout(Sell) = %d, want 0 (unset)", got)
	}
}

func TestConvertBlocksCrossChain(t *testing.T) {
	btc := &currency.Currency{Symbol: "BTC", Params: &currency.Params{BlockTimeMinutes: 10}}
	ltc := &currency.Currency{Symbol: "LTC", Params: &currency.Params{BlockTimeMinutes: 2.5}}

	// 1 BTC block (10 min) should become 4 LTC blocks (2.5 min each).
	got := ConvertBlocks(btc, ltc, 1)
	if got != 4 {
		t.Errorf("ConvertBlocks(BTC->LTC, 1) = %d, want 4", got)
	}
}

func TestLightningDeltaBufferSameChain(t *testing.T) {
	btc := &currency.Currency{Symbol: "BTC"}
	if got := LightningDeltaBuffer(btc, btc, 100); got != 3 {
		t.Errorf("LightningDeltaBuffer(same chain) = %d, want 3", got)
	}
}

func TestLightningDeltaBufferCrossChain(t *testing.T) {
	btc := &currency.Currency{Symbol: "BTC"}
	ltc := &currency.Currency{Symbol: "LTC"}
	if got := LightningDeltaBuffer(btc, ltc, 100); got != 10 {
		t.Errorf("LightningDeltaBuffer(cross chain, 100 blocks) = %d, want 10", got)
	}
}

func TestCalculateTimeoutDate(t *testing.T) {
	btc := &currency.Currency{Params: &currency.Params{BlockTimeMinutes: 10}}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := CalculateTimeoutDate(btc, 6, now)
	want := now.Add(60 * time.Minute)
	if !got.Equal(want) {
		t.Errorf("CalculateTimeoutDate = %v, want %v", got, want)
	}
}
