package fee

import "testing"

func TestPercentageFeeDefaultsToZero(t *testing.T) {
	p := New()
	if got := p.PercentageFee("BTC/BTC"); got != 0 {
		t.Errorf("PercentageFee = %v, want 0", got)
	}
}

func TestBaseFeeByPurpose(t *testing.T) {
	p := New()
	p.SetBaseFee("BTC", NormalClaim, 1)
	p.SetBaseFee("BTC", ReverseLockup, 320)

	if got := p.GetBaseFee("BTC", NormalClaim); got != 1 {
		t.Errorf("NormalClaim base fee = %d, want 1", got)
	}
	if got := p.GetBaseFee("BTC", ReverseLockup); got != 320 {
		t.Errorf("ReverseLockup base fee = %d, want 320", got)
	}
	if got := p.GetBaseFee("BTC", ReverseClaim); got != 0 {
		t.Errorf("unset ReverseClaim base fee = %d, want 0", got)
	}
}
