package simerr

import (
	"context"
	"errors"
	"strings"
)

type abortMessage struct {
	marker  string
	message string
}

// Ordered: the first marker found in the abort text wins.
var abortMessages = []abortMessage{
	{"insufficient_liquidity", "Not enough liquidity in the pool for this trade. Try a smaller amount."},
	{"insufficientliquidity", "Not enough liquidity in the pool for this trade. Try a smaller amount."},
	{"below_minimum", "The amount is below the pool minimum."},
	{"min_lp_out", "Output would be below your minimum. Increase slippage tolerance or retry."},
	{"min_pt_out", "Output would be below your minimum. Increase slippage tolerance or retry."},
	{"min_yt_out", "Output would be below your minimum. Increase slippage tolerance or retry."},
	{"min_sy_out", "Output would be below your minimum. Increase slippage tolerance or retry."},
	{"slippage", "Output would be below your minimum. Increase slippage tolerance or retry."},
	{"market_expired", "This market has matured. Redeem instead of trading."},
	{"expired", "This market has matured. Redeem instead of trading."},
	{"capacity", "This deposit exceeds the market capacity."},
	{"insufficient_balance", "Insufficient balance for this action."},
	{"insufficientcoinbalance", "Insufficient balance for this action."},
	{"insufficient_gas", "Insufficient balance to pay for gas."},
}

const (
	msgGeneric     = "The transaction could not be simulated. Please try again."
	msgOracle      = "Price data is temporarily unavailable. Please try again shortly."
	msgProbes      = "Unable to price this pool."
	msgNetwork     = "Could not reach the network. Please check your connection and retry."
	msgInternal    = "Something went wrong preparing this transaction."
	msgCancelled   = "The request was cancelled."
	msgInvalidArgs = "Please check the entered amount."
)

// UserMessage maps err to text fit for display. It never includes raw
// response bytes or step positions.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return msgCancelled
	}
	var probeErr *AllProbesFailedError
	if errors.As(err, &probeErr) {
		return msgProbes
	}
	var decodeErr *DecodeInvariantError
	if errors.As(err, &decodeErr) {
		return msgInternal
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return msgNetwork
	}
	var simErr *SimulationError
	if errors.As(err, &simErr) {
		if simErr.OracleUnavailable() {
			return msgOracle
		}
		return mapAbort(simErr.Message)
	}
	var inputErr *InputError
	if errors.As(err, &inputErr) {
		return msgInvalidArgs
	}
	return msgGeneric
}

func mapAbort(message string) string {
	msg := strings.ToLower(message)
	for _, m := range abortMessages {
		if strings.Contains(msg, m.marker) {
			return m.message
		}
	}
	return msgGeneric
}

// InputError reports a caller-supplied value the engine refuses to use.
type InputError struct {
	Field string
	Err   error
}

func (e *InputError) Error() string { return "invalid " + e.Field + ": " + e.Err.Error() }

func (e *InputError) Unwrap() error { return e.Err }
