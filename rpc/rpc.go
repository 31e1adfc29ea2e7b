package pricetrackrpc

import (
	"bytes"
	"errors"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Packet is one framed record: H carries routing headers, B the payload.
type Packet struct {
	H map[string][]byte `msgpack:"h,omitempty"`
	B map[string][]byte `msgpack:"b,omitempty"`
}

// Encode writes p to w as one msgpack value.
func (p *Packet) Encode(w io.Writer) error {
	return msgpack.NewEncoder(w).Encode(p)
}

// PacketBuffer reassembles packets from a byte stream that may split them
// at arbitrary points.
type PacketBuffer struct {
	buf bytes.Buffer
}

func (pb *PacketBuffer) Feed(data []byte) ([]*Packet, error) {
	pb.buf.Write(data)

	var results []*Packet
	for pb.buf.Len() > 0 {
		r := bytes.NewReader(pb.buf.Bytes())
		v := new(Packet)
		if err := msgpack.NewDecoder(r).Decode(v); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				// not enough data yet, keep the partial packet buffered
				break
			}
			return results, err
		}
		pb.buf.Next(pb.buf.Len() - r.Len())
		results = append(results, v)
	}
	return results, nil
}

// Pending is the number of buffered bytes not yet forming a whole packet.
func (pb *PacketBuffer) Pending() int {
	return pb.buf.Len()
}
