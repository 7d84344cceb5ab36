package payment

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Code is the closed vocabulary of classified payment failures.
type Code string

const (
	CodeInsufficientFunds    Code = "insufficient_funds"
	CodeInvalidPhone         Code = "invalid_phone"
	CodeProviderError        Code = "provider_error"
	CodeNetworkError         Code = "network_error"
	CodeTimeout              Code = "timeout"
	CodeVerificationFailed   Code = "verification_failed"
	CodeTransactionDeclined  Code = "transaction_declined"
	CodeInvalidAmount        Code = "invalid_amount"
	CodeDuplicateTransaction Code = "duplicate_transaction"
	CodeUnknown              Code = "unknown"
)

// Error is a classified payment failure surfaced to the flow layer.
type Error struct {
	Code      Code
	Title     string
	Message   string
	Retryable bool
	Action    string // suggested remedial action, may be empty
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type errorProfile struct {
	title     string
	retryable bool
	action    string
}

var profiles = map[Code]errorProfile{
	CodeInsufficientFunds:    {"Insufficient Funds", false, "Top up your wallet or choose another payment method."},
	CodeInvalidPhone:         {"Invalid Phone Number", false, "Check the mobile money number and try again."},
	CodeProviderError:        {"Carrier Unavailable", true, "The mobile money carrier is having issues. Try again shortly."},
	CodeNetworkError:         {"Connection Problem", true, "Check your internet connection and retry."},
	CodeTimeout:              {"Payment Unresolved", true, "We could not confirm the payment in time. Check your transaction history before retrying."},
	CodeVerificationFailed:   {"Verification Failed", true, "We could not verify the payment status. Try checking again."},
	CodeTransactionDeclined:  {"Transaction Declined", false, "Contact your carrier or switch to another payment method."},
	CodeInvalidAmount:        {"Invalid Amount", false, "Contact support; the charged amount looks wrong."},
	CodeDuplicateTransaction: {"Already Processed", false, "This payment was already processed."},
	CodeUnknown:              {"Payment Failed", true, "Something went wrong. Please try again."},
}

// NewError builds a classified error for code, using the catalog's title,
// retryable flag, and suggested action.
func NewError(code Code, msg string) *Error {
	p, ok := profiles[code]
	if !ok {
		code = CodeUnknown
		p = profiles[CodeUnknown]
	}
	if msg == "" {
		msg = p.action
	}
	return &Error{
		Code:      code,
		Title:     p.title,
		Message:   msg,
		Retryable: p.retryable,
		Action:    p.action,
	}
}

// gatewayCodes maps the gateway's wire error codes into the taxonomy.
var gatewayCodes = map[string]Code{
	"INSUFFICIENT_FUNDS":    CodeInsufficientFunds,
	"INSUFFICIENT_BALANCE":  CodeInsufficientFunds,
	"INVALID_PHONE":         CodeInvalidPhone,
	"INVALID_MSISDN":        CodeInvalidPhone,
	"PROVIDER_ERROR":        CodeProviderError,
	"CARRIER_UNAVAILABLE":   CodeProviderError,
	"TRANSACTION_DECLINED":  CodeTransactionDeclined,
	"DECLINED":              CodeTransactionDeclined,
	"INVALID_AMOUNT":        CodeInvalidAmount,
	"DUPLICATE_TRANSACTION": CodeDuplicateTransaction,
	"VERIFICATION_FAILED":   CodeVerificationFailed,
}

// Classify maps any error from the payment path into the closed taxonomy.
// Unknown is the conservative, retryable default.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}

	var gerr *gatewayError
	if errors.As(err, &gerr) {
		if code, ok := gatewayCodes[strings.ToUpper(gerr.Code)]; ok {
			return NewError(code, gerr.Message)
		}
		if gerr.StatusCode >= 500 {
			return NewError(CodeProviderError, gerr.Message)
		}
		return NewError(CodeUnknown, gerr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeNetworkError, "request timed out")
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return NewError(CodeNetworkError, err.Error())
	}

	return NewError(CodeUnknown, err.Error())
}
