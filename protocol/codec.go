package protocol

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrMalformed  = errors.New("malformed packet")
	ErrPacketSize = errors.New("packet size is invalid")
)

// MaxPacketSize bounds the encoded size of a single packet
const MaxPacketSize = 64 * 1024

const (
	fieldSrc   protowire.Number = 1
	fieldDst   protowire.Number = 2
	fieldType  protowire.Number = 3
	fieldCosts protowire.Number = 4
)

// Marshal encodes the packet in protobuf wire format:
//
//	message Packet {
//	  sint64 src = 1;
//	  sint64 dst = 2;
//	  int32 type = 3;
//	  repeated sint64 costs = 4; // packed
//	}
func Marshal(p Packet) ([]byte, error) {
	if p.Msg == nil {
		return nil, errors.New("packet has no message")
	}
	b := make([]byte, 0, 16)
	b = protowire.AppendTag(b, fieldSrc, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(p.Src)))
	b = protowire.AppendTag(b, fieldDst, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(p.Dst)))
	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Type()))

	costs := p.Costs()
	if len(costs) != 0 {
		packed := make([]byte, 0, len(costs)*2)
		for _, c := range costs {
			packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(int64(c)))
		}
		b = protowire.AppendTag(b, fieldCosts, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b, nil
}

// Unmarshal decodes a packet encoded by Marshal. All errors wrap ErrMalformed.
func Unmarshal(b []byte) (Packet, error) {
	var (
		src, dst int64
		typ      uint64
		costs    []int
		seen     [fieldCosts + 1]bool
	)
	for len(b) > 0 {
		num, wtyp, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Packet{}, fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case (num == fieldSrc || num == fieldDst || num == fieldType) && wtyp == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Packet{}, fmt.Errorf("%w: field %d: %w", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldSrc:
				src = protowire.DecodeZigZag(v)
			case fieldDst:
				dst = protowire.DecodeZigZag(v)
			case fieldType:
				typ = v
			}
			seen[num] = true
		case num == fieldCosts && wtyp == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Packet{}, fmt.Errorf("%w: costs: %w", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
			for len(packed) > 0 {
				v, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return Packet{}, fmt.Errorf("%w: costs: %w", ErrMalformed, protowire.ParseError(n))
				}
				packed = packed[n:]
				costs = append(costs, int(protowire.DecodeZigZag(v)))
			}
		case num == fieldCosts && wtyp == protowire.VarintType:
			// unpacked repeated field
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Packet{}, fmt.Errorf("%w: costs: %w", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
			costs = append(costs, int(protowire.DecodeZigZag(v)))
		default:
			n := protowire.ConsumeFieldValue(num, wtyp, b)
			if n < 0 {
				return Packet{}, fmt.Errorf("%w: field %d: %w", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if !seen[fieldSrc] || !seen[fieldDst] || !seen[fieldType] {
		return Packet{}, fmt.Errorf("%w: missing header fields", ErrMalformed)
	}

	p := Packet{Src: int(src), Dst: int(dst)}
	switch Type(typ) {
	case TypeHello:
		p.Msg = &Hello{Costs: costs}
	case TypeRoute:
		p.Msg = &Route{Costs: costs}
	case TypeQuit:
		if len(costs) != 0 {
			return Packet{}, fmt.Errorf("%w: quit packet carries costs", ErrMalformed)
		}
		p.Msg = &Quit{}
	default:
		return Packet{}, fmt.Errorf("%w: unknown packet type %d", ErrMalformed, typ)
	}
	return p, nil
}
