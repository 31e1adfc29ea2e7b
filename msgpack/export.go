package pricetrackmsgpack

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"pricetrack"
	pricetrackrpc "pricetrack/rpc"
)

// Packet kinds, carried in the "kind" header.
const (
	KindHeader  = "header"
	KindDataSet = "data_set"
	KindItem    = "item"
	KindSource  = "source"
	KindPrice   = "price"
	KindHistory = "history"
)

const formatVersion = "1"

// Snapshot is everything one data set holds.
type Snapshot struct {
	ExportID uuid.UUID
	DataSet  pricetrack.DataSet
	Items    []pricetrack.Item
	Sources  []pricetrack.Source
	Prices   []pricetrack.Price
	History  []pricetrack.PriceHistory
}

func packet(exportID uuid.UUID, kind string, v any) (*pricetrackrpc.Packet, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return &pricetrackrpc.Packet{
		H: map[string][]byte{"kind": []byte(kind), "export": exportID[:]},
		B: map[string][]byte{"data": data},
	}, nil
}

// Export writes snap as a stream of packets: one header, the data set, then
// every item, source, price and history entry. A nil ExportID gets a fresh one.
func Export(w io.Writer, snap Snapshot) (uuid.UUID, error) {
	id := snap.ExportID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var packets []*pricetrackrpc.Packet
	add := func(kind string, v any) error {
		p, err := packet(id, kind, v)
		if err != nil {
			return err
		}
		packets = append(packets, p)
		return nil
	}

	if err := add(KindHeader, map[string]string{"version": formatVersion}); err != nil {
		return uuid.Nil, err
	}
	if err := add(KindDataSet, NewDataSet(snap.DataSet)); err != nil {
		return uuid.Nil, err
	}
	for _, it := range snap.Items {
		if err := add(KindItem, NewItem(it)); err != nil {
			return uuid.Nil, err
		}
	}
	for _, src := range snap.Sources {
		if err := add(KindSource, NewSource(src)); err != nil {
			return uuid.Nil, err
		}
	}
	for _, p := range snap.Prices {
		if err := add(KindPrice, NewPrice(p)); err != nil {
			return uuid.Nil, err
		}
	}
	for _, h := range snap.History {
		if err := add(KindHistory, NewPriceHistory(h)); err != nil {
			return uuid.Nil, err
		}
	}

	for _, p := range packets {
		if err := p.Encode(w); err != nil {
			return uuid.Nil, err
		}
	}
	return id, nil
}

// Import reads a stream written by Export.
func Import(r io.Reader) (Snapshot, error) {
	var (
		snap      Snapshot
		pb        pricetrackrpc.PacketBuffer
		sawHeader bool
		sawData   bool
		dataSetID int64
	)

	handle := func(p *pricetrackrpc.Packet) error {
		kind := string(p.H["kind"])
		exportID, err := uuid.FromBytes(p.H["export"])
		if err != nil {
			return fmt.Errorf("%s packet: bad export id: %w", kind, err)
		}
		if !sawHeader {
			if kind != KindHeader {
				return fmt.Errorf("stream starts with %q, want %q", kind, KindHeader)
			}
			var hdr map[string]string
			if err := msgpack.Unmarshal(p.B["data"], &hdr); err != nil {
				return fmt.Errorf("decode header: %w", err)
			}
			if hdr["version"] != formatVersion {
				return fmt.Errorf("unsupported export version %q", hdr["version"])
			}
			snap.ExportID = exportID
			sawHeader = true
			return nil
		}
		if exportID != snap.ExportID {
			return fmt.Errorf("%s packet belongs to export %s, not %s", kind, exportID, snap.ExportID)
		}

		data := p.B["data"]
		switch kind {
		case KindDataSet:
			var v DataSet
			if err := msgpack.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("decode %s: %w", kind, err)
			}
			snap.DataSet = ToDataSet(v)
			dataSetID = v.ID
			sawData = true
		case KindItem:
			var v Item
			if err := msgpack.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("decode %s: %w", kind, err)
			}
			snap.Items = append(snap.Items, ToItem(dataSetID, v))
		case KindSource:
			var v Source
			if err := msgpack.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("decode %s: %w", kind, err)
			}
			snap.Sources = append(snap.Sources, ToSource(dataSetID, v))
		case KindPrice:
			var v Price
			if err := msgpack.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("decode %s: %w", kind, err)
			}
			snap.Prices = append(snap.Prices, ToPrice(dataSetID, v))
		case KindHistory:
			var v Price
			if err := msgpack.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("decode %s: %w", kind, err)
			}
			snap.History = append(snap.History, ToPriceHistory(dataSetID, v))
		default:
			return fmt.Errorf("unknown packet kind %q", kind)
		}
		return nil
	}

	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			packets, ferr := pb.Feed(chunk[:n])
			if ferr != nil {
				return Snapshot{}, ferr
			}
			for _, p := range packets {
				if herr := handle(p); herr != nil {
					return Snapshot{}, herr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Snapshot{}, err
		}
	}

	if pb.Pending() > 0 {
		return Snapshot{}, fmt.Errorf("truncated export: %d trailing bytes", pb.Pending())
	}
	if !sawHeader || !sawData {
		return Snapshot{}, fmt.Errorf("export has no data set")
	}
	return snap, nil
}
