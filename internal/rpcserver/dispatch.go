package rpcserver

import (
	"context"
	"fmt"

	"github.com/streamrpc/streamrpc/internal/capability"
	"github.com/streamrpc/streamrpc/internal/framing"
	"github.com/streamrpc/streamrpc/internal/multipart"
	"github.com/streamrpc/streamrpc/internal/transport"
	"github.com/streamrpc/streamrpc/internal/wire"
)

// callHandler resolves the three request kinds against one connection's
// public table (shared, immutable) and private allocator (per-connection).
type callHandler struct {
	server    *Server
	allocator *capability.Allocator
}

func (h *callHandler) handleServiceID(name string, checksum []byte) wire.ServiceIDResult {
	id, ok := h.server.byName[name]
	if !ok {
		return wire.ErrServiceIDResult(wire.ErrServiceNotFound)
	}
	entry := h.server.entries[id]
	if !bytesEqual(entry.checksum, checksum) {
		return wire.ErrServiceIDResult(wire.ErrInvalidChecksum)
	}
	return wire.OKServiceIDResult(uint32(id))
}

func (h *callHandler) handleServiceCall(ctx context.Context, kind wire.ServiceKind, id, functionID uint32, args *multipart.Received) (*multipart.Sendable, error) {
	switch kind {
	case wire.Public:
		if int(id) >= len(h.server.entries) {
			return nil, wire.ErrInvalidServiceID
		}
		return h.server.entries[id].impl.Call(ctx, h.allocator, functionID, args)
	case wire.Private:
		handle, ok := h.allocator.Get(id)
		if !ok {
			return nil, wire.ErrInvalidServiceID
		}
		defer handle.Release()
		return handle.Service().Call(ctx, h.allocator, functionID, args)
	default:
		return nil, wire.ErrInvalidServiceID
	}
}

func (h *callHandler) handleDeallocate(id uint32) wire.DeallocateResult {
	if _, ok := h.allocator.DeallocateByID(id); !ok {
		return wire.ErrDeallocateResult(wire.ErrInvalidPrivateServiceID)
	}
	return wire.OKDeallocateResult()
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// handleStream runs the authoritative per-stream protocol (spec §4.4.4):
// read and zero-copy-decode one request envelope, dispatch on its
// variant, send the matching response, flush, and close. Any I/O or decode
// failure after the envelope is abandoned — the stream is dropped and the
// transport tears it down; a single misbehaving stream never affects
// others on the same connection.
func handleStream(ctx context.Context, codec wire.Codec, raw transport.RawStream, h *callHandler) error {
	stream := framing.New(raw)
	defer stream.Close()

	envelopeBytes, err := stream.Receive(ctx)
	if err != nil {
		return fmt.Errorf("receive envelope: %w", err)
	}

	envelope, err := decodeEnvelope(codec, envelopeBytes)
	if err != nil {
		// No response is possible: we don't know what shape the peer
		// expects without having parsed the envelope.
		return fmt.Errorf("decode envelope: %w", err)
	}

	switch envelope.Variant {
	case wire.RequestServiceID:
		result := h.handleServiceID(envelope.Name, envelope.Checksum)
		if err := sendEnvelope(ctx, codec, stream, result); err != nil {
			return err
		}

	case wire.RequestServiceCall:
		args, err := multipart.ReceiveFromStream(ctx, stream, envelope.PartSizes)
		if err != nil {
			return fmt.Errorf("receive args: %w", err)
		}

		returns, callErr := h.handleServiceCall(ctx, envelope.Kind, envelope.ServiceID, envelope.FunctionID, args)
		if callErr != nil {
			code, ok := callErr.(wire.ServiceCallError)
			if !ok {
				code = wire.ErrServerInternal
			}
			if err := sendEnvelope(ctx, codec, stream, wire.ErrServiceCallResult(code)); err != nil {
				return err
			}
		} else {
			if err := sendEnvelope(ctx, codec, stream, wire.OKServiceCallResult(returns.PartSizes())); err != nil {
				return err
			}
			if err := returns.WriteTo(ctx, stream); err != nil {
				return fmt.Errorf("write returns: %w", err)
			}
		}

	case wire.RequestDeallocate:
		result := h.handleDeallocate(envelope.PrivateServiceID)
		if err := sendEnvelope(ctx, codec, stream, result); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown request variant %d", envelope.Variant)
	}

	if err := stream.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func decodeEnvelope(codec wire.Codec, buf []byte) (wire.RequestEnvelope, error) {
	if zc, ok := codec.(wire.ZeroCopyEnvelopeDecoder); ok {
		return zc.DecodeRequestEnvelopeZeroCopy(buf)
	}
	return wire.DecodeValue[wire.RequestEnvelope](codec, buf)
}

func sendEnvelope[T any](ctx context.Context, codec wire.Codec, stream *framing.Stream, v T) error {
	b, err := wire.EncodeValue(codec, v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := stream.Send(ctx, b); err != nil {
		return fmt.Errorf("send response: %w", err)
	}
	return nil
}
