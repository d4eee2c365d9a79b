package main

import (
	"fmt"
	"sync"

	"github.com/breez/lsps2/lsps2"
)

// loopbackChannelManager is a stand-in for a real Lightning channel manager,
// used to drive the console commands below without a live node attached. It
// records every fail/forward instruction it receives rather than acting on
// real HTLCs.
type loopbackChannelManager struct {
	mu        sync.Mutex
	failed    []lsps2.InterceptID
	forwarded []forwardedHTLC
}

type forwardedHTLC struct {
	InterceptID lsps2.InterceptID
	ChannelID   lsps2.ChannelID
	Peer        lsps2.PeerID
	AmountMsat  lsps2.MilliSatoshi
}

func newLoopbackChannelManager() *loopbackChannelManager {
	return &loopbackChannelManager{}
}

func (m *loopbackChannelManager) FailInterceptedHTLC(id lsps2.InterceptID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	chmgLog.Infof("failing intercepted htlc %x", id)
	m.failed = append(m.failed, id)
	return nil
}

func (m *loopbackChannelManager) ForwardInterceptedHTLC(id lsps2.InterceptID, chanID lsps2.ChannelID, peer lsps2.PeerID, amountMsat lsps2.MilliSatoshi) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	chmgLog.Infof("forwarding intercepted htlc %x across %x: %d msat", id, chanID, amountMsat)
	m.forwarded = append(m.forwarded, forwardedHTLC{
		InterceptID: id,
		ChannelID:   chanID,
		Peer:        peer,
		AmountMsat:  amountMsat,
	})
	return nil
}

func (m *loopbackChannelManager) summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return fmt.Sprintf("%d failed, %d forwarded", len(m.failed), len(m.forwarded))
}
