package lsps2

import "testing"

func testParams() OpeningFeeParams {
	return OpeningFeeParams{
		RawOpeningFeeParams: RawOpeningFeeParams{
			MinFeeMsat:         100,
			Proportional:       0,
			MinPaymentSizeMsat: 1,
			MaxPaymentSizeMsat: 10_000_000,
		},
	}
}

func TestStateMachineSingleHTLCTriggersOpen(t *testing.T) {
	paymentSize := MilliSatoshi(1000)
	c := newOutboundJITChannel(&paymentSize, testParams(), UserChannelID{7})

	params, err := c.htlcIntercepted(htlc(0, 1000, 0xaa))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params == nil {
		t.Fatalf("expected an openChannelParams payload")
	}
	if params.openingFeeMsat != 100 || params.amtToForwardMsat != 900 {
		t.Fatalf("unexpected open params: %+v", params)
	}
	if c.state != statePendingChannelOpen {
		t.Fatalf("expected state PendingChannelOpen, got %s", c.state)
	}
}

func TestStateMachineNoMPPRejectsSecondHTLC(t *testing.T) {
	c := newOutboundJITChannel(nil, testParams(), UserChannelID{7})

	// The first HTLC (1000 msat) is within bounds and covers the 100 msat
	// fee, so it triggers the open. With no fixed payment size a second
	// interception is not queued: it is rejected because the state is no
	// longer PendingInitialPayment.
	if _, err := c.htlcIntercepted(htlc(0, 1000, 0xaa)); err != nil {
		t.Fatalf("unexpected error on first htlc: %v", err)
	}

	if _, err := c.htlcIntercepted(htlc(1, 500, 0xaa)); err == nil {
		t.Fatalf("expected second htlc_intercepted to error once channel has transitioned")
	}
}

func TestStateMachineNoMPPHTLCBelowMinPaymentSizeErrors(t *testing.T) {
	params := testParams()
	params.MinPaymentSizeMsat = 2000
	c := newOutboundJITChannel(nil, params, UserChannelID{7})

	// A single HTLC below min_payment_size_msat errors rather than
	// accumulating, since mpp_mode is false.
	if _, err := c.htlcIntercepted(htlc(0, 1000, 0xaa)); err == nil {
		t.Fatalf("expected payment-size violation error")
	}
}

func TestStateMachineMPPAccumulates(t *testing.T) {
	paymentSize := MilliSatoshi(1000)
	c := newOutboundJITChannel(&paymentSize, testParams(), UserChannelID{7})

	params, err := c.htlcIntercepted(htlc(0, 400, 0xaa))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params != nil {
		t.Fatalf("expected no open-channel trigger yet, got %+v", params)
	}
	if c.state != statePendingInitialPayment {
		t.Fatalf("expected state to remain PendingInitialPayment, got %s", c.state)
	}

	params, err = c.htlcIntercepted(htlc(1, 600, 0xaa))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params == nil {
		t.Fatalf("expected open-channel trigger once the full payment has arrived")
	}
}

func TestStateMachineChannelReadyWrongState(t *testing.T) {
	c := newOutboundJITChannel(nil, testParams(), UserChannelID{7})

	if _, err := c.channelReady(); err == nil {
		t.Fatalf("expected channel_ready to error from PendingInitialPayment")
	}
	if c.state != statePendingInitialPayment {
		t.Fatalf("expected state to be unchanged after a failed transition")
	}
}

func TestStateMachineFullLifecycle(t *testing.T) {
	paymentSize := MilliSatoshi(1000)
	c := newOutboundJITChannel(&paymentSize, testParams(), UserChannelID{7})

	if _, err := c.htlcIntercepted(htlc(0, 1000, 0xaa)); err != nil {
		t.Fatalf("htlc_intercepted: %v", err)
	}

	// A late HTLC for a different payment arrives before channel_ready.
	lateHTLC := htlc(1, 321, 0xbb)
	if params, err := c.htlcIntercepted(lateHTLC); err != nil || params != nil {
		t.Fatalf("expected late htlc to queue without retriggering open: params=%+v err=%v", params, err)
	}

	fp, err := c.channelReady()
	if err != nil {
		t.Fatalf("channel_ready: %v", err)
	}
	if fp.openingFeeMsat != 100 {
		t.Fatalf("unexpected opening fee: %d", fp.openingFeeMsat)
	}
	if len(fp.htlcs) != 1 || fp.htlcs[0].PaymentHash != (PaymentHash{0xaa}) {
		t.Fatalf("expected the triggering group to be popped, got %+v", fp.htlcs)
	}
	if c.state != statePendingPaymentForward {
		t.Fatalf("expected state PendingPaymentForward, got %s", c.state)
	}

	remaining, err := c.paymentForwarded()
	if err != nil {
		t.Fatalf("payment_forwarded: %v", err)
	}
	if len(remaining) != 1 || remaining[0].InterceptID != lateHTLC.InterceptID {
		t.Fatalf("expected the late htlc to drain on payment_forwarded, got %+v", remaining)
	}
	if c.state != statePaymentForwarded {
		t.Fatalf("expected terminal state PaymentForwarded, got %s", c.state)
	}

	// payment_forwarded is not re-enterable.
	if _, err := c.paymentForwarded(); err == nil {
		t.Fatalf("expected payment_forwarded to error from the terminal state")
	}
}
