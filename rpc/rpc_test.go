package pricetrackrpc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, packets ...*Packet) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, p := range packets {
		require.NoError(t, p.Encode(&buf))
	}
	return buf.Bytes()
}

// TestPacketBuffer_SplitStream verifies packets survive arbitrary chunking,
// including splits in the middle of a packet.
func TestPacketBuffer_SplitStream(t *testing.T) {
	in := []*Packet{
		{H: map[string][]byte{"kind": []byte("a")}, B: map[string][]byte{"data": bytes.Repeat([]byte{7}, 300)}},
		{H: map[string][]byte{"kind": []byte("b")}},
		{H: map[string][]byte{"kind": []byte("c")}, B: map[string][]byte{"data": []byte("xyz")}},
	}
	stream := encode(t, in...)

	for _, chunk := range []int{1, 2, 5, 64, len(stream)} {
		var pb PacketBuffer
		var out []*Packet
		for off := 0; off < len(stream); off += chunk {
			end := min(off+chunk, len(stream))
			got, err := pb.Feed(stream[off:end])
			require.NoError(t, err, "chunk %d", chunk)
			out = append(out, got...)
		}
		assert.Equal(t, in, out, "chunk %d", chunk)
		assert.Zero(t, pb.Pending(), "chunk %d", chunk)
	}
}

func TestPacketBuffer_Partial(t *testing.T) {
	stream := encode(t, &Packet{H: map[string][]byte{"kind": []byte("only")}})

	var pb PacketBuffer
	got, err := pb.Feed(stream[:len(stream)-1])
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, len(stream)-1, pb.Pending())

	got, err = pb.Feed(stream[len(stream)-1:])
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []byte("only"), got[0].H["kind"])
}

func TestPacketBuffer_Garbage(t *testing.T) {
	var pb PacketBuffer
	// 0xc1 is never used in msgpack
	_, err := pb.Feed([]byte{0xc1})
	assert.Error(t, err)
}
