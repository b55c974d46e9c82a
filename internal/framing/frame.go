// Package framing implements the length-prefixed message layer (component
// C) on top of any transport.RawStream: every message is a big-endian
// 4-byte length prefix followed by that many payload bytes. Multipart
// bodies are the one exception — a single contiguous raw byte range with
// no inner prefix, sized by the sizes vector the preceding envelope
// carried.
package framing

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/streamrpc/streamrpc/internal/transport"
)

// MaxMessageSize is the largest single framed message the wire format can
// express: the length prefix is a u32, so 2^32-1 bytes is the ceiling.
const MaxMessageSize = math.MaxUint32

const lengthPrefixSize = 4

// Stream wraps a transport.RawStream with buffered reads/writes and the
// length-prefixed framing discipline every exchange relies on.
type Stream struct {
	raw transport.RawStream
	r   *bufio.Reader
	w   *bufio.Writer
}

// New wraps raw in a framing.Stream.
func New(raw transport.RawStream) *Stream {
	return &Stream{
		raw: raw,
		r:   bufio.NewReader(raw),
		w:   bufio.NewWriter(raw),
	}
}

// Send writes one framed message: a big-endian u32 length prefix followed
// by msg. It does not flush — callers batch a request's frames (envelope,
// then optionally a multipart body) before a single Flush, exactly as one
// exchange is expected to do.
func (s *Stream) Send(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg) > MaxMessageSize {
		return fmt.Errorf("framing: message of %d bytes exceeds max frame size %d", len(msg), MaxMessageSize)
	}

	var prefix [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(msg)))
	if _, err := s.w.Write(prefix[:]); err != nil {
		return fmt.Errorf("framing: write length prefix: %w", err)
	}
	if _, err := s.w.Write(msg); err != nil {
		return fmt.Errorf("framing: write message: %w", err)
	}
	return nil
}

// SendRaw writes msg with no length prefix — used only for multipart
// bodies, whose total size the preceding envelope already announced.
func (s *Stream) SendRaw(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.w.Write(msg); err != nil {
		return fmt.Errorf("framing: write raw bytes: %w", err)
	}
	return nil
}

// Receive reads one framed message: the length prefix, then exactly that
// many payload bytes.
func (s *Stream) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(s.r, prefix[:]); err != nil {
		return nil, fmt.Errorf("framing: read length prefix: %w", err)
	}
	length := binary.BigEndian.Uint32(prefix[:])

	msg := make([]byte, length)
	if _, err := io.ReadFull(s.r, msg); err != nil {
		return nil, fmt.Errorf("framing: read message: %w", err)
	}
	return msg, nil
}

// ReceiveRawFull reads exactly len(buf) unprefixed bytes into buf — the
// multipart receive path, where the caller already knows the total size
// from the envelope's sizes vector.
func (s *Stream) ReceiveRawFull(ctx context.Context, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return fmt.Errorf("framing: read raw bytes: %w", err)
	}
	return nil
}

// Flush pushes any buffered writes to the underlying transport stream.
func (s *Stream) Flush() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("framing: flush: %w", err)
	}
	if err := s.raw.Flush(); err != nil {
		return fmt.Errorf("framing: flush transport: %w", err)
	}
	return nil
}

// Close closes the underlying transport stream. Per spec, the stream is
// closed by the initiator after the terminal response frame — callers
// should Flush before Close.
func (s *Stream) Close() error {
	return s.raw.Close()
}

// AwaitStopped waits for the peer to observe this stream as closed, if the
// underlying transport supports it (transport.Stopper). Most callers don't
// need this: the core's default protocol is close-after-terminal-frame
// (see design notes on the ambiguity between "stopped" and eager close).
// It exists as the extension point for transports that want back-pressure
// on stream teardown.
func (s *Stream) AwaitStopped(ctx context.Context) error {
	stopper, ok := s.raw.(transport.Stopper)
	if !ok {
		return nil
	}
	return stopper.Stopped(ctx)
}
