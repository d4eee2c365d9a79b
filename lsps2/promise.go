package lsps2

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// canonicalEncoding serializes a RawOpeningFeeParams into the fixed-width,
// big-endian byte string that the promise HMAC is computed over. Field
// order, integer endianness, and the timestamp format are part of the wire
// contract between LSP and client and must not change without invalidating
// every outstanding promise.
//
// Layout: min_fee_msat (8) || proportional (4) || valid_until (RFC3339,
// ASCII) || min_lifetime_blocks (4) || max_client_to_self_delay (4) ||
// min_payment_size_msat (8) || max_payment_size_msat (8).
func canonicalEncoding(p *RawOpeningFeeParams) []byte {
	validUntil := p.ValidUntil.UTC().Format(time.RFC3339)

	buf := make([]byte, 0, 8+4+len(validUntil)+4+4+8+8)

	var scratch8 [8]byte
	var scratch4 [4]byte

	binary.BigEndian.PutUint64(scratch8[:], uint64(p.MinFeeMsat))
	buf = append(buf, scratch8[:]...)

	binary.BigEndian.PutUint32(scratch4[:], p.Proportional)
	buf = append(buf, scratch4[:]...)

	buf = append(buf, []byte(validUntil)...)

	binary.BigEndian.PutUint32(scratch4[:], p.MinLifetimeBlocks)
	buf = append(buf, scratch4[:]...)

	binary.BigEndian.PutUint32(scratch4[:], p.MaxClientToSelfDelay)
	buf = append(buf, scratch4[:]...)

	binary.BigEndian.PutUint64(scratch8[:], uint64(p.MinPaymentSizeMsat))
	buf = append(buf, scratch8[:]...)

	binary.BigEndian.PutUint64(scratch8[:], uint64(p.MaxPaymentSizeMsat))
	buf = append(buf, scratch8[:]...)

	return buf
}

// signPromise computes the HMAC-SHA256 promise tag for p under secret.
func signPromise(p *RawOpeningFeeParams, secret [32]byte) [32]byte {
	mac := hmac.New(sha256.New, secret[:])
	mac.Write(canonicalEncoding(p))

	var tag [32]byte
	copy(tag[:], mac.Sum(nil))
	return tag
}

// SignOpeningFeeParams is the exported form of intoOpeningFeeParams, for
// operator tooling that signs a fee menu outside of a live get_info flow.
func SignOpeningFeeParams(raw RawOpeningFeeParams, secret [32]byte) OpeningFeeParams {
	return intoOpeningFeeParams(raw, secret)
}

// intoOpeningFeeParams promotes a RawOpeningFeeParams to a full
// OpeningFeeParams by computing its promise under secret. Used by
// opening_fee_params_generated when signing a fee menu for a client.
func intoOpeningFeeParams(raw RawOpeningFeeParams, secret [32]byte) OpeningFeeParams {
	return OpeningFeeParams{
		RawOpeningFeeParams: raw,
		Promise:             signPromise(&raw, secret),
	}
}

// isValidOpeningFeeParams reports whether params.Promise verifies under
// secret in constant time AND params.ValidUntil is still in the future.
// Both conditions must hold; the comparison order does not matter for
// correctness but the constant-time comparison guards against timing
// attacks on the promise tag specifically.
func isValidOpeningFeeParams(params *OpeningFeeParams, secret [32]byte) bool {
	expected := signPromise(&params.RawOpeningFeeParams, secret)
	if !hmac.Equal(expected[:], params.Promise[:]) {
		return false
	}

	return params.ValidUntil.After(time.Now())
}
