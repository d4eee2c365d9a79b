package lsps2

// ServiceEvent is the tagged union of events the handler surfaces to the
// operator for a decision (spec.md §6 "Event surface to operator").
// Exactly one field is non-nil.
type ServiceEvent struct {
	GetInfo     *GetInfoEvent
	BuyRequest  *BuyRequestEvent
	OpenChannel *OpenChannelEvent
}

// GetInfoEvent asks the operator whether Token is recognized and, if so,
// what fee menu to offer.
type GetInfoEvent struct {
	RequestID RequestID
	Peer      PeerID
	Token     string
}

// BuyRequestEvent asks the operator to assign an SCID and CLTV delta for a
// validated buy request.
type BuyRequestEvent struct {
	RequestID        RequestID
	Peer             PeerID
	OpeningFeeParams OpeningFeeParams
	PaymentSizeMsat  *MilliSatoshi
}

// OpenChannelEvent instructs the operator (or its automation) to open a
// real Lightning channel to Peer, funded to forward AmtToForwardMsat once
// OpeningFeeMsat has been deducted.
type OpenChannelEvent struct {
	Peer             PeerID
	AmtToForwardMsat MilliSatoshi
	OpeningFeeMsat   MilliSatoshi
	UserChannelID    UserChannelID
	InterceptSCID    ShortChannelID
}

// ChannelManager is the narrow capability interface the Service Handler
// depends on to act on the channel manager's intercepted HTLCs (spec.md §9
// "Dynamic dispatch over channel-manager trait"). A real implementation
// adapts this onto whatever RPC or in-process API the Lightning node
// exposes; see internal/cln for an example built against a JSON-RPC node.
type ChannelManager interface {
	// FailInterceptedHTLC instructs the channel manager to fail back the
	// HTLC identified by id, e.g. because the JIT channel offer was
	// violated or the state machine rejected the event.
	FailInterceptedHTLC(id InterceptID) error

	// ForwardInterceptedHTLC instructs the channel manager to forward
	// the HTLC identified by id across chanID to peer, reduced to
	// amountMsat.
	ForwardInterceptedHTLC(id InterceptID, chanID ChannelID, peer PeerID, amountMsat MilliSatoshi) error
}
