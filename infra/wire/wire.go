// Package wire holds the protobuf wire helpers behind the hand-written
// record codecs of the state store and the outbox.
package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Buffer appends protobuf wire fields. Zero scalars are omitted, as proto3
// does, so a decoded record compares equal to the one written.
type Buffer []byte

func (e *Buffer) PutUint(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	*e = protowire.AppendTag(*e, num, protowire.VarintType)
	*e = protowire.AppendVarint(*e, v)
}

func (e *Buffer) PutInt(num protowire.Number, v int64) {
	e.PutUint(num, protowire.EncodeZigZag(v))
}

func (e *Buffer) PutBool(num protowire.Number, v bool) {
	if v {
		e.PutUint(num, 1)
	}
}

func (e *Buffer) PutBytes(num protowire.Number, b []byte) {
	if len(b) == 0 {
		return
	}
	e.PutMsg(num, b)
}

func (e *Buffer) PutString(num protowire.Number, s string) {
	if s == "" {
		return
	}
	*e = protowire.AppendTag(*e, num, protowire.BytesType)
	*e = protowire.AppendString(*e, s)
}

// PutMsg always writes the field, so repeated entries keep their position
// even when empty.
func (e *Buffer) PutMsg(num protowire.Number, b []byte) {
	*e = protowire.AppendTag(*e, num, protowire.BytesType)
	*e = protowire.AppendBytes(*e, b)
}

func (e *Buffer) PutPacked(num protowire.Number, vs []uint32) {
	if len(vs) == 0 {
		return
	}
	var p []byte
	for _, v := range vs {
		p = protowire.AppendVarint(p, uint64(v))
	}
	e.PutMsg(num, p)
}

type Field struct {
	Num protowire.Number
	V   uint64
	B   []byte
}

func (f Field) Int() int64     { return protowire.DecodeZigZag(f.V) }
func (f Field) Bool() bool     { return f.V != 0 }
func (f Field) String() string { return string(f.B) }

// Clone copies a bytes field out of the buffer being decoded.
func (f Field) Clone() []byte { return append([]byte(nil), f.B...) }

// Walk calls fn for every field of a wire-encoded message. Fields of
// unknown wire types are skipped.
func Walk(b []byte, fn func(f Field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := Field{Num: num}
		switch typ {
		case protowire.VarintType:
			f.V, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.B, n = protowire.ConsumeBytes(b)
		case protowire.Fixed64Type:
			f.V, n = protowire.ConsumeFixed64(b)
		default:
			if n = protowire.ConsumeFieldValue(num, typ, b); n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// Unpack decodes a packed repeated varint field.
func Unpack(b []byte) ([]uint32, error) {
	var out []uint32
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, uint32(v))
		b = b[n:]
	}
	return out, nil
}
