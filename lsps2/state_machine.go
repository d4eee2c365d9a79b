package lsps2

// openChannelParams is returned from htlcIntercepted when enough payment has
// accumulated to trigger a channel open.
type openChannelParams struct {
	openingFeeMsat   MilliSatoshi
	amtToForwardMsat MilliSatoshi
}

// feePayment is the group of HTLCs popped off the queue on channel_ready,
// together with the opening fee to apportion across them.
type feePayment struct {
	htlcs          []InterceptedHTLC
	openingFeeMsat MilliSatoshi
}

// jitChannelStateKind tags the state outboundJITChannel is currently in.
// Each transition method checks it before acting and rejects the event when
// the channel is in the wrong state.
type jitChannelStateKind int

const (
	statePendingInitialPayment jitChannelStateKind = iota
	statePendingChannelOpen
	statePendingPaymentForward
	statePaymentForwarded
)

func (k jitChannelStateKind) String() string {
	switch k {
	case statePendingInitialPayment:
		return "PendingInitialPayment"
	case statePendingChannelOpen:
		return "PendingChannelOpen"
	case statePendingPaymentForward:
		return "PendingPaymentForward"
	case statePaymentForwarded:
		return "PaymentForwarded"
	default:
		return "Unknown"
	}
}

// outboundJITChannel is the per-SCID lifecycle record: fee-negotiation
// through HTLC interception, channel open, and payment forwarding.
//
// The payment queue is owned here, outside the state enum, rather than
// threaded through each state variant by shared reference (the design
// alternative noted in spec.md §9) — since outboundJITChannel is only ever
// reached through a locked PeerState, the enclosing mutex already serializes
// access and a second lock around the queue would be redundant.
type outboundJITChannel struct {
	state jitChannelStateKind

	queue paymentQueue

	// openingFeeMsat is set exactly once, on the
	// PendingInitialPayment -> PendingChannelOpen transition, and never
	// recomputed afterward.
	openingFeeMsat MilliSatoshi

	userChannelID    UserChannelID
	openingFeeParams OpeningFeeParams
	paymentSizeMsat  *MilliSatoshi
}

// UserChannelID is an opaque 128-bit handle supplied by the operator when
// registering a JIT channel, round-tripped back on channel_ready.
type UserChannelID [16]byte

func newOutboundJITChannel(paymentSizeMsat *MilliSatoshi, params OpeningFeeParams, userChannelID UserChannelID) *outboundJITChannel {
	return &outboundJITChannel{
		state:            statePendingInitialPayment,
		userChannelID:    userChannelID,
		openingFeeParams: params,
		paymentSizeMsat:  paymentSizeMsat,
	}
}

// htlcIntercepted drives the PendingInitialPayment -> PendingChannelOpen
// transition. In MPP mode (a payment size was fixed by the buy request), an
// HTLC arriving while in PendingChannelOpen is queued without triggering
// anything, to be forwarded at full amount after channel_ready. Any other
// state, or PendingChannelOpen without a fixed payment size, is an error.
func (c *outboundJITChannel) htlcIntercepted(htlc InterceptedHTLC) (*openChannelParams, error) {
	if c.state == statePendingChannelOpen && c.paymentSizeMsat != nil {
		c.queue.addHTLC(htlc)
		return nil, nil
	}

	if c.state != statePendingInitialPayment {
		return nil, newChannelStateError(
			"intercepted HTLC when JIT channel was in state: %s", c.state,
		)
	}

	totalMsat, numHTLCs := c.queue.addHTLC(htlc)

	var expectedPaymentSizeMsat MilliSatoshi
	mppMode := c.paymentSizeMsat != nil
	if mppMode {
		expectedPaymentSizeMsat = *c.paymentSizeMsat
	} else {
		if numHTLCs != 1 {
			return nil, newChannelStateError(
				"paying via multiple HTLCs is disallowed in \"no-MPP+var-invoice\" mode",
			)
		}
		expectedPaymentSizeMsat = totalMsat
	}

	params := &c.openingFeeParams
	if expectedPaymentSizeMsat < params.MinPaymentSizeMsat ||
		expectedPaymentSizeMsat > params.MaxPaymentSizeMsat {
		return nil, newChannelStateError(
			"payment size violates our limits: expected_payment_size_msat = %d, "+
				"min_payment_size_msat = %d, max_payment_size_msat = %d",
			expectedPaymentSizeMsat, params.MinPaymentSizeMsat, params.MaxPaymentSizeMsat,
		)
	}

	openingFeeMsat, ok := computeOpeningFee(
		expectedPaymentSizeMsat, params.MinFeeMsat, uint64(params.Proportional),
	)
	if !ok {
		return nil, newChannelStateError(
			"could not compute valid opening fee with min_fee_msat = %d, "+
				"proportional = %d, and expected_payment_size_msat = %d",
			params.MinFeeMsat, params.Proportional, expectedPaymentSizeMsat,
		)
	}

	amtToForwardMsat := saturatingSub(uint64(expectedPaymentSizeMsat), uint64(openingFeeMsat))

	if uint64(totalMsat) >= uint64(expectedPaymentSizeMsat) && amtToForwardMsat > 0 {
		c.state = statePendingChannelOpen
		c.openingFeeMsat = openingFeeMsat

		return &openChannelParams{
			openingFeeMsat:   openingFeeMsat,
			amtToForwardMsat: MilliSatoshi(amtToForwardMsat),
		}, nil
	}

	if mppMode {
		// Stay in PendingInitialPayment, accumulating more HTLCs.
		return nil, nil
	}

	return nil, newChannelStateError("intercepted HTLC is too small to pay opening fee")
}

// channelReady drives the PendingChannelOpen -> PendingPaymentForward
// transition. Only valid while in PendingChannelOpen.
func (c *outboundJITChannel) channelReady() (*feePayment, error) {
	if c.state != statePendingChannelOpen {
		return nil, newChannelStateError(
			"channel ready received when JIT channel was in state: %s", c.state,
		)
	}

	htlcs, ok := c.queue.popGreaterThanMsat(c.openingFeeMsat)
	if !ok {
		return nil, newChannelStateError(
			"no forwardable payment available when moving to channel ready",
		)
	}

	c.state = statePendingPaymentForward

	return &feePayment{htlcs: htlcs, openingFeeMsat: c.openingFeeMsat}, nil
}

// paymentForwarded drives the PendingPaymentForward -> PaymentForwarded
// (terminal) transition. Only valid while in PendingPaymentForward.
func (c *outboundJITChannel) paymentForwarded() ([]InterceptedHTLC, error) {
	if c.state != statePendingPaymentForward {
		return nil, newChannelStateError(
			"payment forwarded when JIT channel was in state: %s", c.state,
		)
	}

	c.state = statePaymentForwarded
	return c.queue.clear(), nil
}
