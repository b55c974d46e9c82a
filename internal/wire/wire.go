// Package wire defines the protocol envelopes exchanged on a single
// multiplexed stream, and the pluggable codec contract used to move them.
//
// Every exchange on a stream is exactly one request envelope followed by
// exactly one response envelope (plus raw multipart bodies where the
// envelope says so). See internal/rpcserver and internal/rpcclient for the
// state machines that drive these envelopes across the wire.
package wire

import "fmt"

// ServiceKind distinguishes a public (server-build-time) service from a
// private (capability) service minted dynamically as the return value of
// another call.
type ServiceKind int

const (
	// Public addresses a service registered at server-build time by its
	// stable slot index in the server's public table.
	Public ServiceKind = iota
	// Private addresses a capability minted for one connection's lifetime.
	Private
)

func (k ServiceKind) String() string {
	switch k {
	case Public:
		return "public"
	case Private:
		return "private"
	default:
		return fmt.Sprintf("ServiceKind(%d)", int(k))
	}
}

// RequestVariant discriminates the three request shapes a stream can carry.
type RequestVariant int

const (
	// RequestServiceID looks up a public service by name and checksum.
	RequestServiceID RequestVariant = iota
	// RequestServiceCall invokes a function on a public or private service.
	RequestServiceCall
	// RequestDeallocate releases a private service (capability).
	RequestDeallocate
)

// RequestEnvelope is the sum type of the three request kinds a stream may
// carry. Exactly one request is ever sent per stream (spec invariant: a
// stream carries exactly one request/response exchange).
type RequestEnvelope struct {
	Variant RequestVariant `json:"variant"`

	// ServiceID fields.
	Name     string `json:"name,omitempty"`
	Checksum []byte `json:"checksum,omitempty"`

	// ServiceCall fields.
	Kind       ServiceKind `json:"kind,omitempty"`
	ServiceID  uint32      `json:"service_id,omitempty"`
	FunctionID uint32      `json:"function_id,omitempty"`
	PartSizes  []uint32    `json:"part_sizes,omitempty"`

	// DeallocatePrivateService fields.
	PrivateServiceID uint32 `json:"private_service_id,omitempty"`
}

// NewServiceIDRequest builds a ServiceId lookup request envelope.
func NewServiceIDRequest(name string, checksum []byte) RequestEnvelope {
	return RequestEnvelope{Variant: RequestServiceID, Name: name, Checksum: checksum}
}

// NewServiceCallRequest builds a ServiceCall request envelope.
func NewServiceCallRequest(kind ServiceKind, id, functionID uint32, partSizes []uint32) RequestEnvelope {
	return RequestEnvelope{
		Variant:    RequestServiceCall,
		Kind:       kind,
		ServiceID:  id,
		FunctionID: functionID,
		PartSizes:  partSizes,
	}
}

// NewDeallocateRequest builds a DeallocatePrivateService request envelope.
func NewDeallocateRequest(id uint32) RequestEnvelope {
	return RequestEnvelope{Variant: RequestDeallocate, PrivateServiceID: id}
}

// ServiceRef is the on-the-wire representation of a capability: a service
// id paired with the checksum the client must verify before trusting it.
type ServiceRef struct {
	ServiceID uint32 `json:"service_id"`
	Checksum  []byte `json:"checksum"`
}

// --- Error taxonomy (§4.6) ---

// ServiceIDError is the error half of ServiceIDResult.
type ServiceIDError string

const (
	// ErrServiceNotFound means no service is registered under that name.
	ErrServiceNotFound ServiceIDError = "service_not_found"
	// ErrInvalidChecksum means the service was found but checksums differ.
	ErrInvalidChecksum ServiceIDError = "invalid_checksum"
)

func (e ServiceIDError) Error() string { return string(e) }

// ServiceCallError is the error half of ServiceCallResult.
type ServiceCallError string

const (
	// ErrInvalidServiceID covers bad ids, overflowed ids, or kind mismatch.
	ErrInvalidServiceID ServiceCallError = "invalid_service_id"
	// ErrInvalidFunctionID means the service has no such function.
	ErrInvalidFunctionID ServiceCallError = "invalid_function_id"
	// ErrArgsDecode means the service failed to decode the multipart args.
	ErrArgsDecode ServiceCallError = "args_decode"
	// ErrServerInternal covers unexpected failures inside the service.
	ErrServerInternal ServiceCallError = "server_internal"
)

func (e ServiceCallError) Error() string { return string(e) }

// DeallocateError is the error half of DeallocateResult.
type DeallocateError string

// ErrInvalidPrivateServiceID means the allocator had no slot at that id.
const ErrInvalidPrivateServiceID DeallocateError = "invalid_private_service_id"

func (e DeallocateError) Error() string { return string(e) }

// ServiceIDResult is the response to a ServiceId request.
type ServiceIDResult struct {
	ServiceID *uint32        `json:"service_id,omitempty"`
	Err       ServiceIDError `json:"err,omitempty"`
}

// OK reports whether the lookup succeeded, returning the service id.
func (r ServiceIDResult) OK() (uint32, bool) {
	if r.ServiceID == nil {
		return 0, false
	}
	return *r.ServiceID, true
}

// Error implements error so callers can propagate it directly.
func (r ServiceIDResult) Error() error {
	if r.Err == "" {
		return nil
	}
	return r.Err
}

// OKServiceIDResult builds a successful lookup result.
func OKServiceIDResult(id uint32) ServiceIDResult { return ServiceIDResult{ServiceID: &id} }

// ErrServiceIDResult builds a failed lookup result.
func ErrServiceIDResult(err ServiceIDError) ServiceIDResult { return ServiceIDResult{Err: err} }

// ServiceCallResult is the response to a ServiceCall request. On success it
// carries the sizes vector for the multipart return bytes that follow on
// the wire; the bytes themselves are sent raw, immediately after.
type ServiceCallResult struct {
	PartSizes []uint32         `json:"part_sizes,omitempty"`
	Err       ServiceCallError `json:"err,omitempty"`
}

// OK reports whether the call succeeded.
func (r ServiceCallResult) OK() ([]uint32, bool) {
	if r.Err != "" {
		return nil, false
	}
	return r.PartSizes, true
}

// Error implements error so callers can propagate it directly.
func (r ServiceCallResult) Error() error {
	if r.Err == "" {
		return nil
	}
	return r.Err
}

// OKServiceCallResult builds a successful call result.
func OKServiceCallResult(partSizes []uint32) ServiceCallResult {
	return ServiceCallResult{PartSizes: partSizes}
}

// ErrServiceCallResult builds a failed call result.
func ErrServiceCallResult(err ServiceCallError) ServiceCallResult {
	return ServiceCallResult{Err: err}
}

// DeallocateResult is the response to a DeallocatePrivateService request.
type DeallocateResult struct {
	Err DeallocateError `json:"err,omitempty"`
}

// OK reports whether the deallocation succeeded.
func (r DeallocateResult) OK() bool { return r.Err == "" }

// Error implements error so callers can propagate it directly.
func (r DeallocateResult) Error() error {
	if r.Err == "" {
		return nil
	}
	return r.Err
}

// OKDeallocateResult builds a successful deallocation result.
func OKDeallocateResult() DeallocateResult { return DeallocateResult{} }

// ErrDeallocateResult builds a failed deallocation result.
func ErrDeallocateResult(err DeallocateError) DeallocateResult { return DeallocateResult{Err: err} }

// Codec is the pluggable encoding format boundary (component B). Every type
// the core itself must move — RequestEnvelope, the three result envelopes,
// ServiceRef, *ServiceRef, uint32 — and every user-supplied argument/return
// type must be encodable and decodable under whatever Codec is plugged in.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// ZeroCopyEnvelopeDecoder is an optional Codec capability. A Codec that
// implements it lets the server decode the request envelope without
// allocating a copy of its string/[]byte fields — used only on the
// server's hot path, before the RequestEnvelope is dispatched. Argument and
// return payloads always go through the regular, allocating Decode.
type ZeroCopyEnvelopeDecoder interface {
	DecodeRequestEnvelopeZeroCopy(buf []byte) (RequestEnvelope, error)
}

// EncodeValue is a small generic convenience wrapper around Codec.Encode.
func EncodeValue[T any](c Codec, v T) ([]byte, error) {
	return c.Encode(v)
}

// DecodeValue is a small generic convenience wrapper around Codec.Decode.
func DecodeValue[T any](c Codec, data []byte) (T, error) {
	var v T
	err := c.Decode(data, &v)
	return v, err
}
