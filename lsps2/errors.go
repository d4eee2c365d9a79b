package lsps2

import (
	"errors"
	"fmt"
)

// Protocol error codes returned to the client in a JSON-RPC error response,
// per the LSPS2 wire schema (see msgs.go).
const (
	// ErrCodeUnrecognizedOrStaleToken is returned for get_info when the
	// operator rejects the supplied token.
	ErrCodeUnrecognizedOrStaleToken = 200

	// ErrCodeInvalidOpeningFeeParams is returned for buy when the
	// promise does not verify or has expired.
	ErrCodeInvalidOpeningFeeParams = 201

	// ErrCodePaymentSizeTooSmall is returned for buy when payment_size_msat
	// is below min_payment_size_msat, or too small to cover the fee.
	ErrCodePaymentSizeTooSmall = 202

	// ErrCodePaymentSizeTooLarge is returned for buy when payment_size_msat
	// is above max_payment_size_msat, or the fee calculation overflowed.
	ErrCodePaymentSizeTooLarge = 203
)

// ChannelStateError is returned by the JIT channel state machine when an
// operation is invalid for the channel's current state, or when the event
// itself violates an invariant (e.g. HTLC too small to cover the fee).
//
// It intentionally carries only a message: the state machine has no wire
// concept of error codes, those are assigned by the caller (the Service
// Handler) depending on which entry point failed.
type ChannelStateError struct {
	msg string
}

func newChannelStateError(format string, args ...interface{}) *ChannelStateError {
	return &ChannelStateError{msg: fmt.Sprintf(format, args...)}
}

func (e *ChannelStateError) Error() string {
	return e.msg
}

// Sentinel errors for package-internal invariant checks that never cross an
// API boundary (mirrors htlcswitch/switch_control.go's use of plain stdlib
// errors.New for sentinel values, as opposed to the go-errors/errors package
// used for wrapped, stack-carrying errors returned to operators).
var (
	// errNoPeerState is returned internally when an operation references
	// a counterparty with no registered PeerState.
	errNoPeerState = errors.New("no state for the counterparty exists")

	// errNoPendingRequest is returned internally when an operator response
	// references a request_id with no matching pending request.
	errNoPendingRequest = errors.New("no pending request for request_id")

	// errWrongPendingRequestKind is returned when a request_id resolves
	// to a pending request of the wrong kind (e.g. responding to a Buy
	// request with invalid_token_provided).
	errWrongPendingRequestKind = errors.New("pending request is of the wrong kind")

	// errUnknownIntercept is returned internally when an intercept_scid
	// or user_channel_id does not resolve to a live OutboundJITChannel.
	errUnknownIntercept = errors.New("no outbound JIT channel for the given identifier")
)
