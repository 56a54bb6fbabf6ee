// Package swaperrors defines the closed error taxonomy returned by the
// orchestrator. Every failure mode named in the error handling design is a
// Code constant here; call sites construct an *Error through one of the
// constructor functions below rather than formatting ad-hoc strings, so
// tests can assert on Code instead of matching error text.
package swaperrors

import "fmt"

// Code identifies one entry of the closed error taxonomy.
type Code string

const (
	// Lookup
	CurrencyNotFound      Code = "CURRENCY_NOT_FOUND"
	PairNotFound          Code = "PAIR_NOT_FOUND"
	SwapNotFound          Code = "SWAP_NOT_FOUND"
	OrderSideNotFound     Code = "ORDER_SIDE_NOT_FOUND"
	NoLndClient           Code = "NO_LND_CLIENT"
	NotSupportedBySymbol  Code = "NOT_SUPPORTED_BY_SYMBOL"
	EthereumNotEnabled    Code = "ETHEREUM_NOT_ENABLED"

	// Precondition / validation
	UndefinedParameter   Code = "UNDEFINED_PARAMETER"
	UnsupportedParameter Code = "UNSUPPORTED_PARAMETER"
	InvalidEthereumAddr  Code = "INVALID_ETHEREUM_ADDRESS"
	NotWholeNumber       Code = "NOT_WHOLE_NUMBER"
	InvalidPairHash      Code = "INVALID_PAIR_HASH"

	// Business rule
	SwapWithPreimageExists         Code = "SWAP_WITH_PREIMAGE_EXISTS"
	SwapWithInvoiceExists          Code = "SWAP_WITH_INVOICE_EXISTS"
	SwapHasInvoiceAlready          Code = "SWAP_HAS_INVOICE_ALREADY"
	SwapNoLockup                   Code = "SWAP_NO_LOCKUP"
	InvalidInvoiceAmount           Code = "INVALID_INVOICE_AMOUNT"
	BeneathMinimalAmount           Code = "BENEATH_MINIMAL_AMOUNT"
	ExceedMaximalAmount            Code = "EXCEED_MAXIMAL_AMOUNT"
	OnchainAmountTooLow            Code = "ONCHAIN_AMOUNT_TOO_LOW"
	ReverseSwapsDisabled           Code = "REVERSE_SWAPS_DISABLED"
	ExceedsMaxInboundLiquidity     Code = "EXCEEDS_MAX_INBOUND_LIQUIDITY"
	BeneathMinInboundLiquidity     Code = "BENEATH_MIN_INBOUND_LIQUIDITY"
	InvoiceAndOnchainAmountSet     Code = "INVOICE_AND_ONCHAIN_AMOUNT_SPECIFIED"
	NoAmountSpecified              Code = "NO_AMOUNT_SPECIFIED"

	// Collaborator passthrough wrapping
	RefundBeforeTimeout Code = "REFUND_BEFORE_TIMEOUT"
)

// Error is the structured value every orchestrator failure mode produces.
// Details carries the code-specific payload (e.g. the maximal amount for
// EXCEED_MAXIMAL_AMOUNT), left untyped because each code shapes it
// differently; callers that need a field do a checked type assertion.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is an *Error with the same Code, so callers can
// write errors.Is(err, swaperrors.New(swaperrors.SwapNotFound, "")) style
// checks, though comparing Code directly after errors.As is preferred.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, message string, details ...map[string]interface{}) *Error {
	var d map[string]interface{}
	if len(details) > 0 {
		d = details[0]
	}
	return &Error{Code: code, Message: message, Details: d}
}

func CurrencyNotFoundErr(symbol string) *Error {
	return New(CurrencyNotFound, fmt.Sprintf("could not find currency: %s", symbol))
}

func PairNotFoundErr(pairID string) *Error {
	return New(PairNotFound, fmt.Sprintf("could not find pair: %s", pairID))
}

func SwapNotFoundErr(id string) *Error {
	return New(SwapNotFound, fmt.Sprintf("could not find swap with id: %s", id))
}

func OrderSideNotFoundErr(side string) *Error {
	return New(OrderSideNotFound, fmt.Sprintf("could not find order side: %s", side))
}

func NoLndClientErr(symbol string) *Error {
	return New(NoLndClient, fmt.Sprintf("no lightning client configured for: %s", symbol))
}

func NotSupportedBySymbolErr(symbol string) *Error {
	return New(NotSupportedBySymbol, fmt.Sprintf("not supported by symbol: %s", symbol))
}

func EthereumNotEnabledErr() *Error {
	return New(EthereumNotEnabled, "ethereum is not enabled")
}

func UndefinedParameterErr(name string) *Error {
	return New(UndefinedParameter, fmt.Sprintf("undefined parameter: %s", name))
}

func UnsupportedParameterErr(name string) *Error {
	return New(UnsupportedParameter, fmt.Sprintf("unsupported parameter: %s", name))
}

func InvalidEthereumAddressErr(address string) *Error {
	return New(InvalidEthereumAddr, fmt.Sprintf("invalid ethereum address: %s", address))
}

func NotWholeNumberErr(name string) *Error {
	return New(NotWholeNumber, fmt.Sprintf("%s is not a whole number", name))
}

func InvalidPairHashErr() *Error {
	return New(InvalidPairHash, "invalid pair hash")
}

func SwapWithPreimageExistsErr() *Error {
	return New(SwapWithPreimageExists, "swap with preimage hash already exists")
}

func SwapWithInvoiceExistsErr() *Error {
	return New(SwapWithInvoiceExists, "swap with invoice already exists")
}

func SwapHasInvoiceAlreadyErr() *Error {
	return New(SwapHasInvoiceAlready, "swap has an invoice already")
}

func SwapNoLockupErr() *Error {
	return New(SwapNoLockup, "swap has no lockup transaction")
}

func InvalidInvoiceAmountErr(max uint64) *Error {
	return New(InvalidInvoiceAmount, "invoice amount is too high", map[string]interface{}{"maxInvoiceAmount": max})
}

func BeneathMinimalAmountErr(amount, min uint64) *Error {
	return New(BeneathMinimalAmount, "amount is beneath minimal", map[string]interface{}{"amount": amount, "minimal": min})
}

func ExceedMaximalAmountErr(amount, max uint64) *Error {
	return New(ExceedMaximalAmount, "amount exceeds maximal", map[string]interface{}{"amount": amount, "maximal": max})
}

func OnchainAmountTooLowErr() *Error {
	return New(OnchainAmountTooLow, "onchain amount is too low")
}

func ReverseSwapsDisabledErr() *Error {
	return New(ReverseSwapsDisabled, "reverse swaps are currently disabled")
}

func ExceedsMaxInboundLiquidityErr(percent, max int) *Error {
	return New(ExceedsMaxInboundLiquidity, "exceeds maximal inbound liquidity", map[string]interface{}{"percent": percent, "maximal": max})
}

func BeneathMinInboundLiquidityErr(percent, min int) *Error {
	return New(BeneathMinInboundLiquidity, "beneath minimal inbound liquidity", map[string]interface{}{"percent": percent, "minimal": min})
}

func InvoiceAndOnchainAmountSpecifiedErr() *Error {
	return New(InvoiceAndOnchainAmountSet, "cannot specify both invoice and onchain amount")
}

func NoAmountSpecifiedErr() *Error {
	return New(NoAmountSpecified, "no amount was specified")
}

// EmptyReferralIDErr matches addReferral's validation message verbatim.
func EmptyReferralIDErr() *Error {
	return New(UndefinedParameter, "referral IDs cannot be empty")
}

// InvalidReferralFeeShareErr matches addReferral's validation message verbatim.
func InvalidReferralFeeShareErr() *Error {
	return New(UnsupportedParameter, "referral fee share must be between 0 and 100")
}

// RefundBeforeTimeoutErr wraps a chain's premature-refund rejection with
// the swap's timeout projection (spec scenario 6).
func RefundBeforeTimeoutErr(message string, timeoutBlockHeight uint32, timeoutEta int64) *Error {
	return New(RefundBeforeTimeout, message, map[string]interface{}{
		"timeoutBlockHeight": timeoutBlockHeight,
		"timeoutEta":         timeoutEta,
	})
}
