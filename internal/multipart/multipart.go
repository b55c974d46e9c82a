// Package multipart implements the multipart concept on top of framing: a
// producer announces a sizes vector inside the preceding envelope, then
// writes the concatenation of all parts as a single raw byte range with no
// inner framing. The receiver allocates a buffer sized to the sum of the
// announced sizes, reads exactly that many bytes, and exposes each part as
// a slice into the shared buffer.
package multipart

import (
	"context"
	"fmt"

	"github.com/streamrpc/streamrpc/internal/framing"
)

// Sendable is a multipart payload ready to be written to a stream: an
// ordered list of parts, sent as one contiguous raw byte range.
type Sendable struct {
	parts [][]byte
}

// NewSendable builds a Sendable from already-encoded parts.
func NewSendable(parts ...[]byte) *Sendable {
	return &Sendable{parts: parts}
}

// Push appends one more encoded part.
func (s *Sendable) Push(part []byte) {
	s.parts = append(s.parts, part)
}

// PartSizes returns the sizes vector to announce in the preceding
// envelope.
func (s *Sendable) PartSizes() []uint32 {
	sizes := make([]uint32, len(s.parts))
	for i, p := range s.parts {
		sizes[i] = uint32(len(p))
	}
	return sizes
}

// WriteTo writes the concatenated parts as a single raw byte range onto
// stream, one part per SendRaw call.
func (s *Sendable) WriteTo(ctx context.Context, stream *framing.Stream) error {
	for i, part := range s.parts {
		if err := stream.SendRaw(ctx, part); err != nil {
			return fmt.Errorf("multipart: write part %d: %w", i, err)
		}
	}
	return nil
}

// Received is a multipart payload read off a stream: one contiguous buffer
// plus the byte ranges within it that each part occupies.
type Received struct {
	buffer     []byte
	partRanges []partRange
}

type partRange struct {
	start, end int
}

// ReceiveFromStream reads a multipart body of the given part sizes from
// stream. The buffer is allocated once, sized to the checked sum of
// partSizes, then filled with a single raw read.
func ReceiveFromStream(ctx context.Context, stream *framing.Stream, partSizes []uint32) (*Received, error) {
	var total uint64
	ranges := make([]partRange, len(partSizes))
	offset := 0
	for i, size := range partSizes {
		total += uint64(size)
		if total > framing.MaxMessageSize {
			return nil, fmt.Errorf("multipart: total size overflows frame size limit")
		}
		end := offset + int(size)
		ranges[i] = partRange{start: offset, end: end}
		offset = end
	}

	buffer := make([]byte, offset)
	if offset > 0 {
		if err := stream.ReceiveRawFull(ctx, buffer); err != nil {
			return nil, fmt.Errorf("multipart: receive body: %w", err)
		}
	}

	return &Received{buffer: buffer, partRanges: ranges}, nil
}

// Part returns part i as a slice into the shared buffer, or false if i is
// out of range.
func (r *Received) Part(i int) ([]byte, bool) {
	if i < 0 || i >= len(r.partRanges) {
		return nil, false
	}
	pr := r.partRanges[i]
	return r.buffer[pr.start:pr.end], true
}

// Len returns the number of parts.
func (r *Received) Len() int { return len(r.partRanges) }

// Parts returns every part as slices into the shared buffer, in order.
func (r *Received) Parts() [][]byte {
	out := make([][]byte, len(r.partRanges))
	for i, pr := range r.partRanges {
		out[i] = r.buffer[pr.start:pr.end]
	}
	return out
}

// Bytes returns the entire underlying buffer, e.g. for a single-part call
// whose caller wants the raw argument bytes directly.
func (r *Received) Bytes() []byte { return r.buffer }
