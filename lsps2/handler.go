package lsps2

import (
	"sync"

	goerrors "github.com/go-errors/errors"

	"github.com/breez/lsps2/queue"
)

// Config is the Service's immutable process configuration (spec.md §6
// "Process configuration"). Rotating PromiseSecret requires constructing a
// new Service and invalidates every promise signed under the old secret.
type Config struct {
	// PromiseSecret is the 32-byte key used to HMAC-sign and validate
	// OpeningFeeParams promises.
	PromiseSecret [32]byte
}

// peerEntry pairs a peerState with the mutex guarding it. Every method on
// peerState assumes the caller holds mu; every Service method that reaches
// into a peerEntry must hold mu for the duration of the critical section.
type peerEntry struct {
	mu    sync.Mutex
	state *peerState
}

// Service is the LSPS2 JIT-channel service handler: the six entry points
// described in the package's design, plus the per-peer concurrent registries
// they operate on.
//
// Lock discipline (see the two-level scheme this mirrors): perPeerStateMu
// guards the outer peer map only (acquired in write mode to register a new
// peer, read mode otherwise); each peerEntry's own mutex guards that peer's
// state; interceptSCIDMu and channelIDMu guard the two reverse indices
// independently. Lock ordering to avoid deadlock: reverse-index lock, then
// the outer peer map, then a peer's inner mutex — no code path ever holds
// two peers' inner mutexes at once.
type Service struct {
	cfg            Config
	channelManager ChannelManager

	perPeerStateMu sync.RWMutex
	perPeerState   map[PeerID]*peerEntry

	interceptSCIDMu     sync.RWMutex
	peerByInterceptSCID map[ShortChannelID]PeerID

	channelIDMu     sync.RWMutex
	peerByChannelID map[ChannelID]PeerID

	events    *queue.ConcurrentQueue
	responses *queue.ConcurrentQueue
}

// NewService constructs a Service bound to cfg and channelManager. The
// returned Service's event and response queues are started and ready to
// drain via Events() and Responses().
func NewService(cfg Config, channelManager ChannelManager) *Service {
	s := &Service{
		cfg:                 cfg,
		channelManager:      channelManager,
		perPeerState:        make(map[PeerID]*peerEntry),
		peerByInterceptSCID: make(map[ShortChannelID]PeerID),
		peerByChannelID:     make(map[ChannelID]PeerID),
		events:              queue.NewConcurrentQueue(64),
		responses:           queue.NewConcurrentQueue(64),
	}
	s.events.Start()
	s.responses.Start()
	return s
}

// Stop halts the event and response queues; any events or responses not yet
// received by the operator are discarded. Not safe to call concurrently with
// in-flight handler calls.
func (s *Service) Stop() {
	s.events.Stop()
	s.responses.Stop()
}

// Events returns the channel the operator drains ServiceEvent values from.
func (s *Service) Events() <-chan interface{} {
	return s.events.ChanOut()
}

// Responses returns the channel the operator drains LSPS2Response values
// from, to be relayed back to the client over whatever transport is in use.
func (s *Service) Responses() <-chan interface{} {
	return s.responses.ChanOut()
}

func (s *Service) emit(ev ServiceEvent) {
	s.events.ChanIn() <- ev
}

func (s *Service) respond(resp LSPS2Response) {
	s.responses.ChanIn() <- resp
}

// getPeerEntry looks up an existing peer's entry without creating one.
func (s *Service) getPeerEntry(peer PeerID) (*peerEntry, error) {
	s.perPeerStateMu.RLock()
	entry, ok := s.perPeerState[peer]
	s.perPeerStateMu.RUnlock()
	if !ok {
		return nil, errNoPeerState
	}
	return entry, nil
}

// getOrCreatePeerEntry looks up peer's entry, registering a fresh one under
// the write lock if this is the first time peer has been seen.
func (s *Service) getOrCreatePeerEntry(peer PeerID) *peerEntry {
	s.perPeerStateMu.RLock()
	entry, ok := s.perPeerState[peer]
	s.perPeerStateMu.RUnlock()
	if ok {
		return entry
	}

	s.perPeerStateMu.Lock()
	defer s.perPeerStateMu.Unlock()

	if entry, ok := s.perPeerState[peer]; ok {
		return entry
	}
	entry = &peerEntry{state: newPeerState()}
	s.perPeerState[peer] = entry
	return entry
}

// HandleMessage dispatches an inbound LSPS2 protocol request (spec.md §4.1
// handle_message). Only requests are modeled here; a transport adapter that
// receives a response where a request was expected should log and drop it
// rather than call this method at all.
func (s *Service) HandleMessage(req LSPS2Request, peer PeerID) {
	switch {
	case req.GetInfo != nil:
		s.handleGetInfo(req.RequestID, peer, req.GetInfo)
	case req.Buy != nil:
		s.handleBuy(req.RequestID, peer, req.Buy)
	default:
		log.Warnf("handle_message: request %s carries no recognized variant", req.RequestID)
	}
}

func (s *Service) handleGetInfo(requestID RequestID, peer PeerID, msg *GetInfoRequest) {
	entry := s.getOrCreatePeerEntry(peer)

	entry.mu.Lock()
	entry.state.pendingRequests[requestID] = pendingRequest{kind: pendingGetInfo}
	entry.mu.Unlock()

	s.emit(ServiceEvent{GetInfo: &GetInfoEvent{
		RequestID: requestID,
		Peer:      peer,
		Token:     msg.Token,
	}})
}

func (s *Service) handleBuy(requestID RequestID, peer PeerID, msg *BuyRequest) {
	params := &msg.OpeningFeeParams

	if msg.PaymentSizeMsat != nil {
		paymentSize := *msg.PaymentSizeMsat

		if paymentSize < params.MinPaymentSizeMsat {
			s.rejectBuy(requestID, ErrCodePaymentSizeTooSmall, "payment_size_msat below min_payment_size_msat")
			return
		}
		if paymentSize > params.MaxPaymentSizeMsat {
			s.rejectBuy(requestID, ErrCodePaymentSizeTooLarge, "payment_size_msat above max_payment_size_msat")
			return
		}

		fee, ok := computeOpeningFee(paymentSize, params.MinFeeMsat, uint64(params.Proportional))
		if !ok {
			s.rejectBuy(requestID, ErrCodePaymentSizeTooLarge, "opening fee computation overflowed")
			return
		}
		if fee >= paymentSize {
			s.rejectBuy(requestID, ErrCodePaymentSizeTooSmall, "payment_size_msat cannot cover the opening fee")
			return
		}
	}

	if !isValidOpeningFeeParams(params, s.cfg.PromiseSecret) {
		s.rejectBuy(requestID, ErrCodeInvalidOpeningFeeParams, "opening fee params promise does not verify")
		return
	}

	entry := s.getOrCreatePeerEntry(peer)
	entry.mu.Lock()
	entry.state.pendingRequests[requestID] = pendingRequest{kind: pendingBuy, buy: msg}
	entry.mu.Unlock()

	s.emit(ServiceEvent{BuyRequest: &BuyRequestEvent{
		RequestID:        requestID,
		Peer:             peer,
		OpeningFeeParams: msg.OpeningFeeParams,
		PaymentSizeMsat:  msg.PaymentSizeMsat,
	}})
}

func (s *Service) rejectBuy(requestID RequestID, code int, message string) {
	log.Debugf("buy request %s rejected: %s", requestID, message)
	s.respond(LSPS2Response{
		RequestID: requestID,
		BuyError:  &ResponseError{Code: code, Message: message},
	})
}

// takePendingRequest removes and returns the pending request for requestID
// under peer, verifying it is of the expected kind. Caller must not already
// hold entry.mu.
func (s *Service) takePendingRequest(entry *peerEntry, requestID RequestID, want pendingRequestKind) (pendingRequest, error) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	pr, ok := entry.state.pendingRequests[requestID]
	if !ok {
		return pendingRequest{}, errNoPendingRequest
	}
	if pr.kind != want {
		return pendingRequest{}, errWrongPendingRequestKind
	}
	delete(entry.state.pendingRequests, requestID)
	return pr, nil
}

// InvalidTokenProvided is the operator's rejection response to a GetInfo
// request (spec.md §4.1 invalid_token_provided).
func (s *Service) InvalidTokenProvided(peer PeerID, requestID RequestID) error {
	entry, err := s.getPeerEntry(peer)
	if err != nil {
		return goerrors.Wrap(err, 0)
	}

	if _, err := s.takePendingRequest(entry, requestID, pendingGetInfo); err != nil {
		return goerrors.Wrap(err, 0)
	}

	s.respond(LSPS2Response{
		RequestID:    requestID,
		GetInfoError: &ResponseError{Code: ErrCodeUnrecognizedOrStaleToken, Message: "token not recognized"},
	})
	return nil
}

// OpeningFeeParamsGenerated is the operator's success response to a GetInfo
// request: it signs each entry of rawMenu into a promise-bearing
// OpeningFeeParams under the service's secret and enqueues the menu for
// delivery to the client.
func (s *Service) OpeningFeeParamsGenerated(peer PeerID, requestID RequestID, rawMenu []RawOpeningFeeParams) error {
	entry, err := s.getPeerEntry(peer)
	if err != nil {
		return goerrors.Wrap(err, 0)
	}

	if _, err := s.takePendingRequest(entry, requestID, pendingGetInfo); err != nil {
		return goerrors.Wrap(err, 0)
	}

	menu := make([]OpeningFeeParams, len(rawMenu))
	for i, raw := range rawMenu {
		menu[i] = intoOpeningFeeParams(raw, s.cfg.PromiseSecret)
	}

	s.respond(LSPS2Response{
		RequestID: requestID,
		GetInfo:   &GetInfoResponse{OpeningFeeParamsMenu: menu},
	})
	return nil
}

// InvoiceParametersGenerated is the operator's success response to a
// BuyRequest: it registers interceptSCID against peer, creates the
// OutboundJITChannel awaiting payment, and enqueues a BuyResponse.
func (s *Service) InvoiceParametersGenerated(
	peer PeerID,
	requestID RequestID,
	interceptSCID ShortChannelID,
	cltvExpiryDelta uint32,
	clientTrustsLSP bool,
	userChannelID UserChannelID,
) error {
	entry, err := s.getPeerEntry(peer)
	if err != nil {
		return goerrors.Wrap(err, 0)
	}

	pr, err := s.takePendingRequest(entry, requestID, pendingBuy)
	if err != nil {
		return goerrors.Wrap(err, 0)
	}

	s.interceptSCIDMu.Lock()
	s.peerByInterceptSCID[interceptSCID] = peer
	s.interceptSCIDMu.Unlock()

	entry.mu.Lock()
	channel := newOutboundJITChannel(pr.buy.PaymentSizeMsat, pr.buy.OpeningFeeParams, userChannelID)
	entry.state.insertOutboundChannel(interceptSCID, channel)
	entry.state.interceptSCIDByUserChannelID[userChannelID] = interceptSCID
	entry.mu.Unlock()

	s.respond(LSPS2Response{
		RequestID: requestID,
		Buy: &BuyResponse{
			JITChannelSCID:     interceptSCID,
			LSPCLTVExpiryDelta: cltvExpiryDelta,
			ClientTrustsLSP:    clientTrustsLSP,
		},
	})
	return nil
}

// HTLCIntercepted is the channel manager's notification of an inbound HTLC
// it has held rather than forwarded (spec.md §4.1 htlc_intercepted). A miss
// against peerByInterceptSCID is not an error: the SCID belongs to someone
// else's interception policy.
func (s *Service) HTLCIntercepted(interceptSCID ShortChannelID, htlc InterceptedHTLC) error {
	s.interceptSCIDMu.RLock()
	peer, ok := s.peerByInterceptSCID[interceptSCID]
	s.interceptSCIDMu.RUnlock()
	if !ok {
		return nil
	}

	entry, err := s.getPeerEntry(peer)
	if err != nil {
		log.Errorf("htlc_intercepted: intercept_scid %d resolved to peer with no registered state", interceptSCID)
		return goerrors.Wrap(err, 0)
	}

	entry.mu.Lock()
	channel, ok := entry.state.outboundChannelsByInterceptSCID[interceptSCID]
	if !ok {
		entry.mu.Unlock()
		// peer_by_intercept_scid is stale for this SCID (the channel was
		// dropped on an earlier error without cleaning up the reverse
		// index, see the design note this carries forward). Silently
		// ignoring matches the documented current behavior.
		log.Debugf("htlc_intercepted: stale intercept_scid %d for peer with no live channel", interceptSCID)
		return nil
	}

	params, err := channel.htlcIntercepted(htlc)
	if err != nil {
		delete(entry.state.outboundChannelsByInterceptSCID, interceptSCID)
		entry.mu.Unlock()

		log.Warnf("htlc_intercepted: failing intercept_id %x: %v", htlc.InterceptID, err)
		if failErr := s.channelManager.FailInterceptedHTLC(htlc.InterceptID); failErr != nil {
			log.Errorf("htlc_intercepted: fail_intercepted_htlc for %x also failed: %v", htlc.InterceptID, failErr)
		}
		return err
	}
	userChannelID := channel.userChannelID
	entry.mu.Unlock()

	if params != nil {
		s.emit(ServiceEvent{OpenChannel: &OpenChannelEvent{
			Peer:             peer,
			AmtToForwardMsat: params.amtToForwardMsat,
			OpeningFeeMsat:   params.openingFeeMsat,
			UserChannelID:    userChannelID,
			InterceptSCID:    interceptSCID,
		}})
	}
	return nil
}

// ChannelReady is the channel manager's notification that the channel
// opened for userChannelID has reached the funding stage (spec.md §4.1
// channel_ready). It drives the channel through PendingPaymentForward and
// then straight to the terminal PaymentForwarded, forwarding the
// fee-covering group (apportioned) and then every late-arriving HTLC (at
// full amount, no further fee taken).
func (s *Service) ChannelReady(userChannelID UserChannelID, channelID ChannelID, peer PeerID) error {
	s.channelIDMu.Lock()
	s.peerByChannelID[channelID] = peer
	s.channelIDMu.Unlock()

	entry, err := s.getPeerEntry(peer)
	if err != nil {
		return goerrors.Wrap(err, 0)
	}

	entry.mu.Lock()
	interceptSCID, ok := entry.state.interceptSCIDByUserChannelID[userChannelID]
	if !ok {
		entry.mu.Unlock()
		return goerrors.Wrap(errUnknownIntercept, 0)
	}
	entry.state.interceptSCIDByChannelID[channelID] = interceptSCID

	channel, ok := entry.state.outboundChannelsByInterceptSCID[interceptSCID]
	if !ok {
		entry.mu.Unlock()
		return goerrors.Wrap(errUnknownIntercept, 0)
	}

	fp, err := channel.channelReady()
	if err != nil {
		entry.mu.Unlock()
		return err
	}

	shares := calculateAmountToForwardPerHTLC(fp.htlcs, fp.openingFeeMsat)

	remaining, err := channel.paymentForwarded()
	if err != nil {
		entry.mu.Unlock()
		return err
	}
	entry.mu.Unlock()

	for _, share := range shares {
		if err := s.channelManager.ForwardInterceptedHTLC(share.InterceptID, channelID, peer, share.AmountToForwardMsat); err != nil {
			log.Errorf("channel_ready: forward_intercepted_htlc for %x failed: %v", share.InterceptID, err)
		}
	}
	for _, htlc := range remaining {
		if err := s.channelManager.ForwardInterceptedHTLC(htlc.InterceptID, channelID, peer, htlc.ExpectedOutboundAmountMsat); err != nil {
			log.Errorf("channel_ready: forward_intercepted_htlc for late htlc %x failed: %v", htlc.InterceptID, err)
		}
	}
	return nil
}
