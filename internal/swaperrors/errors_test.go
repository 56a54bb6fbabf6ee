package swaperrors

import "testing"

func TestErrorMessage(t *testing.T) {
	err := SwapNotFoundErr("abc123")
	if err.Error() != "could not find swap with id: abc123" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Code != SwapNotFound {
		t.Errorf("Code = %v, want %v", err.Code, SwapNotFound)
	}
}

func TestErrorIs(t *testing.T) {
	a := SwapNotFoundErr("1")
	b := SwapNotFoundErr("2")
	if !a.Is(b) {
		t.Error("errors with the same code should match Is()")
	}
	c := PairNotFoundErr("BTC/BTC")
	if a.Is(c) {
		t.Error("errors with different codes should not match Is()")
	}
}

func TestExceedMaximalAmountDetails(t *testing.T) {
	err := ExceedMaximalAmountErr(100, 50)
	if err.Details["amount"] != uint64(100) || err.Details["maximal"] != uint64(50) {
		t.Errorf("Details = %+v", err.Details)
	}
}

func TestReferralValidationMessages(t *testing.T) {
	if EmptyReferralIDErr().Error() != "referral IDs cannot be empty" {
		t.Errorf("unexpected message: %s", EmptyReferralIDErr().Error())
	}
	if InvalidReferralFeeShareErr().Error() != "referral fee share must be between 0 and 100" {
		t.Errorf("unexpected message: %s", InvalidReferralFeeShareErr().Error())
	}
}
