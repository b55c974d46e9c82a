package jsoncodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrpc/streamrpc/internal/wire"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := New()

	result := wire.OKServiceIDResult(42)
	b, err := c.Encode(result)
	require.NoError(t, err)

	var decoded wire.ServiceIDResult
	require.NoError(t, c.Decode(b, &decoded))

	id, ok := decoded.OK()
	assert.True(t, ok)
	assert.Equal(t, uint32(42), id)
}

func TestDecodeRequestEnvelopeZeroCopyServiceID(t *testing.T) {
	c := New()

	req := wire.NewServiceIDRequest("Hello", []byte{1, 2, 3})
	b, err := c.Encode(req)
	require.NoError(t, err)

	env, err := c.DecodeRequestEnvelopeZeroCopy(b)
	require.NoError(t, err)

	assert.Equal(t, wire.RequestServiceID, env.Variant)
	assert.Equal(t, "Hello", env.Name)
	assert.Equal(t, []byte{1, 2, 3}, env.Checksum)
}

func TestDecodeRequestEnvelopeZeroCopyServiceCall(t *testing.T) {
	c := New()

	req := wire.NewServiceCallRequest(wire.Private, 7, 2, []uint32{10, 20})
	b, err := c.Encode(req)
	require.NoError(t, err)

	env, err := c.DecodeRequestEnvelopeZeroCopy(b)
	require.NoError(t, err)

	assert.Equal(t, wire.RequestServiceCall, env.Variant)
	assert.Equal(t, wire.Private, env.Kind)
	assert.Equal(t, uint32(7), env.ServiceID)
	assert.Equal(t, uint32(2), env.FunctionID)
	assert.Equal(t, []uint32{10, 20}, env.PartSizes)
}

func TestDecodeRequestEnvelopeZeroCopyDeallocate(t *testing.T) {
	c := New()

	req := wire.NewDeallocateRequest(99)
	b, err := c.Encode(req)
	require.NoError(t, err)

	env, err := c.DecodeRequestEnvelopeZeroCopy(b)
	require.NoError(t, err)

	assert.Equal(t, wire.RequestDeallocate, env.Variant)
	assert.Equal(t, uint32(99), env.PrivateServiceID)
}

func TestDecodeRequestEnvelopeZeroCopyAliasesNameBytes(t *testing.T) {
	c := New()

	req := wire.NewServiceIDRequest("aliased-name", nil)
	b, err := c.Encode(req)
	require.NoError(t, err)

	env, err := c.DecodeRequestEnvelopeZeroCopy(b)
	require.NoError(t, err)
	assert.Equal(t, "aliased-name", env.Name)

	// Mutating the backing buffer after decode must be visible through the
	// aliased string — this is the whole point of the zero-copy path, and
	// the test documents that tradeoff rather than treating it as a bug.
	idx := indexOf(b, "aliased-name")
	require.GreaterOrEqual(t, idx, 0)
	b[idx] = 'X'
	assert.Equal(t, byte('X'), env.Name[0])
}

func TestDecodeRequestEnvelopeZeroCopyHandlesEscapes(t *testing.T) {
	c := New()

	req := wire.NewServiceIDRequest(`with "quotes" and \backslash`, nil)
	b, err := c.Encode(req)
	require.NoError(t, err)

	env, err := c.DecodeRequestEnvelopeZeroCopy(b)
	require.NoError(t, err)
	assert.Equal(t, `with "quotes" and \backslash`, env.Name)
}

func indexOf(buf []byte, s string) int {
	for i := 0; i+len(s) <= len(buf); i++ {
		if string(buf[i:i+len(s)]) == s {
			return i
		}
	}
	return -1
}
