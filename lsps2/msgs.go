package lsps2

// This file describes the LSPS2 wire schema the Service Handler consumes
// and produces (spec.md §6). Encoding these into JSON-RPC 2.0 envelopes and
// carrying them over a transport is an external collaborator's concern (out
// of scope per spec.md §1); what lives here is the semantic shape only.

// GetInfoRequest is the lsps2.get_info request.
type GetInfoRequest struct {
	Token string
}

// GetInfoResponse is the lsps2.get_info response: a menu of signed fee
// schedules the client may choose from in a subsequent buy.
type GetInfoResponse struct {
	OpeningFeeParamsMenu []OpeningFeeParams
}

// BuyRequest is the lsps2.buy request: a chosen fee schedule and an
// optional fixed payment size.
type BuyRequest struct {
	OpeningFeeParams OpeningFeeParams
	PaymentSizeMsat  *MilliSatoshi
}

// BuyResponse is the lsps2.buy response: the SCID the client should embed
// in its invoice route hint.
type BuyResponse struct {
	JITChannelSCID     ShortChannelID
	LSPCLTVExpiryDelta uint32
	ClientTrustsLSP    bool
}

// ResponseError is a JSON-RPC 2.0 style error object, carrying one of the
// codes defined in errors.go.
type ResponseError struct {
	Code    int
	Message string
}

// LSPS2Request is the tagged union of requests handle_message accepts.
// Exactly one of GetInfo/Buy is non-nil.
type LSPS2Request struct {
	RequestID RequestID
	GetInfo   *GetInfoRequest
	Buy       *BuyRequest
}

// LSPS2Response is the tagged union of responses the handler enqueues back
// to the client. Exactly one field is non-nil.
type LSPS2Response struct {
	RequestID    RequestID
	GetInfo      *GetInfoResponse
	GetInfoError *ResponseError
	Buy          *BuyResponse
	BuyError     *ResponseError
}
