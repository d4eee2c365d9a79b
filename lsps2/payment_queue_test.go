package lsps2

import (
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func htlc(id byte, amt MilliSatoshi, hash byte) InterceptedHTLC {
	return InterceptedHTLC{
		InterceptID:                InterceptID{id},
		ExpectedOutboundAmountMsat: amt,
		PaymentHash:                PaymentHash{hash},
	}
}

func TestPaymentQueueGroupsByHash(t *testing.T) {
	var q paymentQueue

	total, count := q.addHTLC(htlc(1, 100, 0xaa))
	if total != 100 || count != 1 {
		t.Fatalf("unexpected totals after first add: %d msat, %d htlcs", total, count)
	}

	total, count = q.addHTLC(htlc(2, 50, 0xbb))
	if total != 150 || count != 2 {
		t.Fatalf("unexpected totals after second add: %d msat, %d htlcs", total, count)
	}

	// Shares payment hash with the first HTLC: joins the existing group.
	total, count = q.addHTLC(htlc(3, 25, 0xaa))
	if total != 175 || count != 3 {
		t.Fatalf("unexpected totals after third add: %d msat, %d htlcs", total, count)
	}

	if len(q.groups) != 2 {
		t.Fatalf("expected 2 groups, got %d: %s", len(q.groups), spew.Sdump(q.groups))
	}
	if len(q.groups[0].htlcs) != 2 {
		t.Fatalf("expected first group to have 2 htlcs, got %d", len(q.groups[0].htlcs))
	}
}

func TestPaymentQueuePopGreaterThan(t *testing.T) {
	var q paymentQueue
	q.addHTLC(htlc(1, 50, 0xaa))
	q.addHTLC(htlc(2, 200, 0xbb))

	// Neither group individually exceeds 300.
	if _, ok := q.popGreaterThanMsat(300); ok {
		t.Fatalf("expected no group to exceed 300 msat")
	}

	htlcs, ok := q.popGreaterThanMsat(100)
	if !ok {
		t.Fatalf("expected the 0xbb group (200 msat) to exceed 100 msat")
	}
	if len(htlcs) != 1 || htlcs[0].PaymentHash != (PaymentHash{0xbb}) {
		t.Fatalf("popped the wrong group: %s", spew.Sdump(htlcs))
	}

	// Remaining queue should now only have the 0xaa group.
	if len(q.groups) != 1 || q.groups[0].paymentHash != (PaymentHash{0xaa}) {
		t.Fatalf("expected only the 0xaa group to remain: %s", spew.Sdump(q.groups))
	}
}

func TestPaymentQueueClear(t *testing.T) {
	var q paymentQueue
	q.addHTLC(htlc(1, 50, 0xaa))
	q.addHTLC(htlc(2, 200, 0xbb))
	q.addHTLC(htlc(3, 10, 0xaa))

	want := []InterceptedHTLC{htlc(1, 50, 0xaa), htlc(3, 10, 0xaa), htlc(2, 200, 0xbb)}
	got := q.clear()

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("clear() order mismatch:\ngot:  %s\nwant: %s", spew.Sdump(got), spew.Sdump(want))
	}

	if len(q.groups) != 0 {
		t.Fatalf("expected queue to be empty after clear, got %s", spew.Sdump(q.groups))
	}
}
