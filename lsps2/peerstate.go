package lsps2

// pendingRequestKind distinguishes the two protocol requests that can be
// in flight awaiting an operator decision.
type pendingRequestKind int

const (
	pendingGetInfo pendingRequestKind = iota
	pendingBuy
)

// pendingRequest is what's stored in PeerState.pendingRequests between
// handle_message accepting a request and the operator resolving it.
type pendingRequest struct {
	kind pendingRequestKind

	// buy is populated only when kind == pendingBuy.
	buy *BuyRequest
}

// peerState is the per-counterparty registry of in-flight JIT channels and
// requests. Every method assumes the caller already holds the mu of the
// peerEntry that owns it.
type peerState struct {
	outboundChannelsByInterceptSCID map[ShortChannelID]*outboundJITChannel
	interceptSCIDByUserChannelID    map[UserChannelID]ShortChannelID
	interceptSCIDByChannelID        map[ChannelID]ShortChannelID
	pendingRequests                map[RequestID]pendingRequest
}

func newPeerState() *peerState {
	return &peerState{
		outboundChannelsByInterceptSCID: make(map[ShortChannelID]*outboundJITChannel),
		interceptSCIDByUserChannelID:    make(map[UserChannelID]ShortChannelID),
		interceptSCIDByChannelID:        make(map[ChannelID]ShortChannelID),
		pendingRequests:                 make(map[RequestID]pendingRequest),
	}
}

func (p *peerState) insertOutboundChannel(scid ShortChannelID, c *outboundJITChannel) {
	p.outboundChannelsByInterceptSCID[scid] = c
}
