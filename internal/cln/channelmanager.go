package cln

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec"

	"github.com/breez/lsps2/lsps2"
)

// ChannelManager adapts a Client into lsps2.ChannelManager, so the service
// core can fail and forward real intercepted HTLCs on a live lightningd
// node instead of the in-memory loopback used for local demos.
type ChannelManager struct {
	client *Client
}

// NewChannelManager wraps client as an lsps2.ChannelManager.
func NewChannelManager(client *Client) *ChannelManager {
	return &ChannelManager{client: client}
}

type htlcResolveParams struct {
	InterceptID string `json:"intercept_id"`
	Result      string `json:"result"`
}

// FailInterceptedHTLC resolves a held htlc_accepted hook with "fail", the
// standard CLN plugin convention for instructing lightningd not to forward
// an intercepted HTLC.
func (c *ChannelManager) FailInterceptedHTLC(id lsps2.InterceptID) error {
	return c.client.Call("htlc_accepted_resolve", htlcResolveParams{
		InterceptID: hex.EncodeToString(id[:]),
		Result:      "fail",
	}, nil)
}

type htlcForwardParams struct {
	InterceptID string `json:"intercept_id"`
	Result      string `json:"result"`
	ChannelID   string `json:"channel_id"`
	Peer        string `json:"peer_id"`
	ForwardMsat uint64 `json:"forward_amount_msat"`
}

// ForwardInterceptedHTLC resolves a held htlc_accepted hook with
// "continue", redirecting it across chanID to peer at the reduced amount.
func (c *ChannelManager) ForwardInterceptedHTLC(id lsps2.InterceptID, chanID lsps2.ChannelID, peer lsps2.PeerID, amountMsat lsps2.MilliSatoshi) error {
	return c.client.Call("htlc_accepted_resolve", htlcForwardParams{
		InterceptID: hex.EncodeToString(id[:]),
		Result:      "continue",
		ChannelID:   hex.EncodeToString(chanID[:]),
		Peer:        hex.EncodeToString(peer[:]),
		ForwardMsat: uint64(amountMsat),
	}, nil)
}

// ParsePeerID decodes the hex-encoded compressed pubkey a CLN RPC response
// reports for a peer and canonicalizes it into an lsps2.PeerID, rejecting
// anything that doesn't parse as a valid secp256k1 point.
func ParsePeerID(hexPubkey string) (lsps2.PeerID, error) {
	var out lsps2.PeerID

	raw, err := hex.DecodeString(hexPubkey)
	if err != nil {
		return out, fmt.Errorf("peer id is not valid hex: %w", err)
	}

	pubKey, err := btcec.ParsePubKey(raw, btcec.S256())
	if err != nil {
		return out, fmt.Errorf("peer id is not a valid pubkey: %w", err)
	}

	copy(out[:], pubKey.SerializeCompressed())
	return out, nil
}
