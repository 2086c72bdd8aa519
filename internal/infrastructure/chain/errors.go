package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

var (
	ErrReverted          = errors.New("execution reverted")
	ErrSelectorMissing   = errors.New("function not available on contract")
	ErrUnavailable       = errors.New("blockchain unavailable")
	ErrInsufficientFunds = errors.New("insufficient funds for gas")
	ErrNonce             = errors.New("transaction nonce rejected")
)

// CallError is a classified failure of a contract call or transaction.
type CallError struct {
	Method string
	Kind   error
	Reason string
	TxHash string
	Err    error
}

func (e *CallError) Error() string {
	msg := e.Method + ": " + e.Kind.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *CallError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classify turns a raw go-ethereum error into a *CallError.
func classify(method string, err error) error {
	if err == nil {
		return nil
	}
	ce := &CallError{Method: method, Err: err}
	msg := err.Error()

	switch {
	case errors.Is(err, bind.ErrNoCode):
		ce.Kind, ce.Reason = ErrSelectorMissing, "no contract code at address"
	case strings.Contains(msg, "attempting to unmarshal an empty string"),
		strings.Contains(msg, "attempting to unmarshall an empty string"):
		ce.Kind, ce.Reason = ErrSelectorMissing, "empty return data"
	case strings.Contains(msg, "Function does not exist"):
		ce.Kind, ce.Reason = ErrSelectorMissing, "Function does not exist"
	case strings.Contains(msg, "execution reverted"):
		ce.Kind, ce.Reason = ErrReverted, revertReason(err)
	case strings.Contains(msg, "insufficient funds"):
		ce.Kind = ErrInsufficientFunds
	case strings.Contains(msg, "nonce too low"),
		strings.Contains(msg, "nonce too high"),
		strings.Contains(msg, "replacement transaction underpriced"):
		ce.Kind, ce.Reason = ErrNonce, msg
	default:
		ce.Kind, ce.Reason = ErrUnavailable, msg
	}
	return errors.WithStack(ce)
}

// revertReason prefers the ABI-encoded Error(string) payload and falls back to
// the text after "execution reverted: ".
func revertReason(err error) string {
	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if reason, uerr := abi.UnpackRevert(common.FromHex(s)); uerr == nil {
				return reason
			}
		}
	}
	msg := err.Error()
	if i := strings.Index(msg, "execution reverted: "); i >= 0 {
		return msg[i+len("execution reverted: "):]
	}
	return ""
}

// UserMessage renders a chain failure for API clients. Contract-side
// rejections and infrastructure failures read differently.
func UserMessage(err error) string {
	var ce *CallError
	reason := ""
	if errors.As(err, &ce) {
		reason = ce.Reason
	}
	switch {
	case errors.Is(err, ErrReverted):
		if reason != "" {
			return "rejected by contract: " + reason
		}
		return "rejected by contract"
	case errors.Is(err, ErrSelectorMissing):
		return "contract function not available, the ABI or facet may be out of date"
	case errors.Is(err, ErrInsufficientFunds):
		return "admin wallet has insufficient funds for gas"
	case errors.Is(err, ErrNonce):
		return "transaction nonce conflict, please retry"
	case errors.Is(err, ErrUnavailable):
		return "could not reach the blockchain, please try again"
	}
	return "blockchain error"
}

// IsChainError reports whether err carries one of the chain classifications.
func IsChainError(err error) bool {
	for _, kind := range []error{ErrReverted, ErrSelectorMissing, ErrUnavailable, ErrInsufficientFunds, ErrNonce} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
