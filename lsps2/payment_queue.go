package lsps2

// paymentGroup is every InterceptedHTLC seen so far sharing one PaymentHash
// under a single SCID (an MPP group).
type paymentGroup struct {
	paymentHash PaymentHash
	htlcs       []InterceptedHTLC
}

func (g *paymentGroup) totalMsat() MilliSatoshi {
	var total uint64
	for _, htlc := range g.htlcs {
		total += uint64(htlc.ExpectedOutboundAmountMsat)
	}
	return MilliSatoshi(total)
}

// paymentQueue is an ordered grouping of intercepted HTLCs by payment hash,
// scoped to a single SCID. Groups are kept in the order their payment hash
// was first seen; HTLCs within a group are kept in arrival order. This
// ordering is what lets channel_ready forward the fee-covering group as a
// single unit without disturbing the relative order of other payments.
type paymentQueue struct {
	groups []paymentGroup
}

// addHTLC appends htlc to the queue, joining an existing group that shares
// its payment hash or starting a new group at the tail. It returns the
// combined amount and HTLC count across every group currently queued.
func (q *paymentQueue) addHTLC(htlc InterceptedHTLC) (totalMsat MilliSatoshi, numHTLCs int) {
	found := false
	for i := range q.groups {
		if q.groups[i].paymentHash == htlc.PaymentHash {
			q.groups[i].htlcs = append(q.groups[i].htlcs, htlc)
			found = true
			break
		}
	}

	if !found {
		q.groups = append(q.groups, paymentGroup{
			paymentHash: htlc.PaymentHash,
			htlcs:       []InterceptedHTLC{htlc},
		})
	}

	var total uint64
	var count int
	for _, g := range q.groups {
		total += uint64(g.totalMsat())
		count += len(g.htlcs)
	}

	return MilliSatoshi(total), count
}

// popGreaterThanMsat finds the first group, in insertion order, whose
// summed amount strictly exceeds thresholdMsat, removes it from the queue,
// and returns its HTLCs. ok is false if no such group exists.
func (q *paymentQueue) popGreaterThanMsat(thresholdMsat MilliSatoshi) (htlcs []InterceptedHTLC, ok bool) {
	for i := range q.groups {
		if q.groups[i].totalMsat() > thresholdMsat {
			htlcs = q.groups[i].htlcs
			q.groups = append(q.groups[:i], q.groups[i+1:]...)
			return htlcs, true
		}
	}
	return nil, false
}

// clear removes every HTLC from every remaining group and returns them in
// insertion order (groups in order, HTLCs within a group in order).
func (q *paymentQueue) clear() []InterceptedHTLC {
	var out []InterceptedHTLC
	for _, g := range q.groups {
		out = append(out, g.htlcs...)
	}
	q.groups = nil
	return out
}
