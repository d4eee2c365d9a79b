package lsps2

import "time"

// MilliSatoshi represents a thousandth of a satoshi, the native Lightning
// amount unit used throughout the LSPS2 wire schema.
type MilliSatoshi uint64

// PeerID is the compressed secp256k1 public key of a Lightning counterparty,
// used as the map key throughout the per-peer registries. A fixed-size byte
// array is used rather than a *btcec.PublicKey so that it is directly usable
// as a Go map key (the teacher's own convention, e.g. discovery/syncer.go's
// peerPub [33]byte and lnpeer.Peer's PubKey() [33]byte).
type PeerID [33]byte

// ShortChannelID is the 8-byte opaque SCID handed out to clients and used
// to intercept HTLCs destined for a not-yet-open JIT channel.
type ShortChannelID uint64

// ChannelID identifies a channel once it has reached the funding stage,
// populated on channel_ready.
type ChannelID [32]byte

// InterceptID is an opaque token identifying a single intercepted HTLC, as
// assigned by the channel manager.
type InterceptID [32]byte

// PaymentHash identifies the payment an intercepted HTLC belongs to. Several
// InterceptedHTLCs may share a PaymentHash under one SCID when the payer is
// using multi-path payment (MPP).
type PaymentHash [32]byte

// RequestID identifies an in-flight LSPS2 JSON-RPC request awaiting a
// decision from the operator.
type RequestID string

// InterceptedHTLC is a single inbound HTLC the channel manager has held
// rather than forwarded, awaiting instruction from this service. Its
// identity is InterceptID; multiple InterceptedHTLCs may share PaymentHash.
type InterceptedHTLC struct {
	InterceptID                InterceptID
	ExpectedOutboundAmountMsat MilliSatoshi
	PaymentHash                PaymentHash
}

// RawOpeningFeeParams is an OpeningFeeParams before the LSP has signed it
// with a promise. It is what an operator supplies to
// opening_fee_params_generated.
type RawOpeningFeeParams struct {
	MinFeeMsat           MilliSatoshi
	Proportional         uint32
	ValidUntil           time.Time
	MinLifetimeBlocks    uint32
	MaxClientToSelfDelay uint32
	MinPaymentSizeMsat   MilliSatoshi
	MaxPaymentSizeMsat   MilliSatoshi
}

// OpeningFeeParams is the negotiated price schedule for one candidate
// channel open, including the Promise binding it to the LSP's secret.
// Invariants: MinFeeMsat > 0; MinPaymentSizeMsat <= MaxPaymentSizeMsat;
// Promise verifies under the LSP's promise secret.
type OpeningFeeParams struct {
	RawOpeningFeeParams

	// Promise is the base64-transmitted HMAC-SHA256 tag over the
	// canonical encoding of RawOpeningFeeParams (see promise.go).
	Promise [32]byte
}
