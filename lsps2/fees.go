package lsps2

import "math/bits"

// ComputeOpeningFee is the exported form of computeOpeningFee, for operator
// tooling that wants to preview a fee outside of a live buy request.
func ComputeOpeningFee(paymentSizeMsat MilliSatoshi, minFeeMsat MilliSatoshi, proportionalPpm uint64) (MilliSatoshi, bool) {
	return computeOpeningFee(paymentSizeMsat, minFeeMsat, proportionalPpm)
}

// computeOpeningFee returns the opening fee in msat for a channel opened to
// forward paymentSizeMsat, given the floor minFeeMsat and the proportional
// rate proportionalPpm (parts per million of the payment size). The
// proportional component is ceiling-rounded; the final fee is the larger of
// the floor and the proportional component.
//
// All intermediate arithmetic is carried out in 128 bits (via
// math/bits.Mul64/Add64) so that paymentSizeMsat * proportionalPpm cannot
// silently wrap a uint64. ok is false if either the numerator or the final
// fee would overflow uint64.
func computeOpeningFee(paymentSizeMsat MilliSatoshi, minFeeMsat MilliSatoshi, proportionalPpm uint64) (MilliSatoshi, bool) {
	hi, lo := bits.Mul64(uint64(paymentSizeMsat), proportionalPpm)

	var carry uint64
	lo, carry = bits.Add64(lo, 999_999, 0)
	hi, carry = bits.Add64(hi, 0, carry)
	if carry != 0 {
		// numerator overflowed 128 bits; cannot happen for any
		// realistic input but guarded for completeness.
		return 0, false
	}

	// The numerator does not fit in a uint64. This also keeps hi below
	// the divisor, so bits.Div64 cannot panic.
	if hi != 0 {
		return 0, false
	}
	proportionalFee, _ := bits.Div64(hi, lo, 1_000_000)

	fee := uint64(minFeeMsat)
	if proportionalFee > fee {
		fee = proportionalFee
	}

	return MilliSatoshi(fee), true
}

// forwardShare pairs an intercepted HTLC's identity with the amount to
// forward for it once the apportioned opening fee has been deducted.
type forwardShare struct {
	InterceptID         InterceptID
	AmountToForwardMsat MilliSatoshi
}

// calculateAmountToForwardPerHTLC apportions totalFeeMsat across htlcs
// proportionally to each HTLC's expected outbound amount, then subtracts
// the apportioned share from that HTLC's amount. The rounding residual left
// over from floor-dividing each proportional share is dumped onto the last
// HTLC so that the shares sum to exactly totalFeeMsat.
//
// Returns an empty slice if totalFeeMsat exceeds the combined HTLC amount;
// that is an invariant violation by the caller (the state machine never
// triggers a channel_ready payment whose queued group doesn't cover the fee)
// and is treated as "nothing to forward" rather than panicking.
func calculateAmountToForwardPerHTLC(htlcs []InterceptedHTLC, totalFeeMsat MilliSatoshi) []forwardShare {
	var totalMsat uint64
	for _, htlc := range htlcs {
		totalMsat += uint64(htlc.ExpectedOutboundAmountMsat)
	}

	if uint64(totalFeeMsat) > totalMsat {
		return nil
	}

	out := make([]forwardShare, len(htlcs))
	remaining := uint64(totalFeeMsat)

	for i, htlc := range htlcs {
		amt := uint64(htlc.ExpectedOutboundAmountMsat)

		// hi < totalMsat always: the true quotient is bounded by amt
		// (since totalFeeMsat <= totalMsat), so it never exceeds
		// totalMsat, which rules out the overflow Div64 would panic on.
		hi, lo := bits.Mul64(uint64(totalFeeMsat), amt)
		proportional, _ := bits.Div64(hi, lo, totalMsat)

		share := min64(remaining, proportional)
		share = min64(share, amt)
		remaining -= share

		if i == len(htlcs)-1 {
			share += remaining
		}

		out[i] = forwardShare{
			InterceptID:         htlc.InterceptID,
			AmountToForwardMsat: MilliSatoshi(saturatingSub(amt, share)),
		}
	}

	return out
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
