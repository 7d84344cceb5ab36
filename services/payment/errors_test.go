package payment

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify_GatewayCodes(t *testing.T) {
	tests := []struct {
		wireCode  string
		want      Code
		retryable bool
	}{
		{"INSUFFICIENT_FUNDS", CodeInsufficientFunds, false},
		{"INSUFFICIENT_BALANCE", CodeInsufficientFunds, false},
		{"INVALID_PHONE", CodeInvalidPhone, false},
		{"INVALID_MSISDN", CodeInvalidPhone, false},
		{"CARRIER_UNAVAILABLE", CodeProviderError, true},
		{"DECLINED", CodeTransactionDeclined, false},
		{"INVALID_AMOUNT", CodeInvalidAmount, false},
		{"DUPLICATE_TRANSACTION", CodeDuplicateTransaction, false},
		{"VERIFICATION_FAILED", CodeVerificationFailed, true},
	}

	for _, tc := range tests {
		t.Run(tc.wireCode, func(t *testing.T) {
			err := &gatewayError{StatusCode: 400, Code: tc.wireCode, Message: "x"}
			got := Classify(err)
			require.Equal(t, tc.want, got.Code)
			require.Equal(t, tc.retryable, got.Retryable)
			require.NotEmpty(t, got.Title)
			require.NotEmpty(t, got.Action)
		})
	}
}

func TestClassify_Fallbacks(t *testing.T) {
	t.Run("lowercase wire codes still map", func(t *testing.T) {
		err := &gatewayError{StatusCode: 400, Code: "insufficient_funds"}
		require.Equal(t, CodeInsufficientFunds, Classify(err).Code)
	})

	t.Run("unrecognized code on a 5xx is a provider error", func(t *testing.T) {
		err := &gatewayError{StatusCode: 503, Code: "WHO_KNOWS"}
		got := Classify(err)
		require.Equal(t, CodeProviderError, got.Code)
		require.True(t, got.Retryable)
	})

	t.Run("unrecognized code on a 4xx falls back to unknown", func(t *testing.T) {
		err := &gatewayError{StatusCode: 422, Code: "WHO_KNOWS"}
		got := Classify(err)
		require.Equal(t, CodeUnknown, got.Code)
		require.True(t, got.Retryable, "unknown is the conservative retryable default")
	})

	t.Run("deadline exceeded is a network error", func(t *testing.T) {
		err := fmt.Errorf("request failed: %w", context.DeadlineExceeded)
		require.Equal(t, CodeNetworkError, Classify(err).Code)
	})

	t.Run("transport errors are network errors", func(t *testing.T) {
		err := fmt.Errorf("do: %w", &net.OpError{Op: "dial", Err: &timeoutErr{}})
		got := Classify(err)
		require.Equal(t, CodeNetworkError, got.Code)
		require.True(t, got.Retryable)
	})

	t.Run("arbitrary errors default to unknown", func(t *testing.T) {
		got := Classify(errors.New("something odd"))
		require.Equal(t, CodeUnknown, got.Code)
		require.True(t, got.Retryable)
	})

	t.Run("an already classified error passes through", func(t *testing.T) {
		orig := NewError(CodeTimeout, "")
		wrapped := fmt.Errorf("verify: %w", orig)
		require.Same(t, orig, Classify(wrapped))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		require.Nil(t, Classify(nil))
	})
}

func TestNewError_UnknownCodeFallsBack(t *testing.T) {
	got := NewError(Code("made_up"), "msg")
	require.Equal(t, CodeUnknown, got.Code)
	require.Equal(t, "msg", got.Message)
}

func TestNewError_EmptyMessageUsesAction(t *testing.T) {
	got := NewError(CodeTimeout, "")
	require.Equal(t, got.Action, got.Message)
}

type timeoutErr struct{}

func (*timeoutErr) Error() string   { return "i/o timeout" }
func (*timeoutErr) Timeout() bool   { return true }
func (*timeoutErr) Temporary() bool { return true }
