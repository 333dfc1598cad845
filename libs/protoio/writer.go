// Package protoio writes protobuf wire encodings one field at a time.
//
// Scalar fields follow proto3 rules: zero values and empty byte strings are
// not emitted. Embedded messages written with Message are always emitted,
// which matches non-nullable gogoproto fields.
package protoio

import (
	"github.com/gogo/protobuf/proto"
)

// Writer accumulates the fields of a single message.
type Writer struct {
	buf *proto.Buffer
}

// NewWriter returns an empty Writer. Marshal on an empty Writer returns an
// empty, non-nil slice, as generated Marshal methods do.
func NewWriter() *Writer {
	return &Writer{buf: proto.NewBuffer(make([]byte, 0, 16))}
}

func (w *Writer) key(field int32, wireType int) {
	_ = w.buf.EncodeVarint(uint64(field)<<3 | uint64(wireType))
}

// Uvarint writes an unsigned varint field (uint32, uint64, enum).
func (w *Writer) Uvarint(field int32, v uint64) *Writer {
	if v == 0 {
		return w
	}
	w.key(field, proto.WireVarint)
	_ = w.buf.EncodeVarint(v)
	return w
}

// Varint writes a signed varint field (int32, int64). Negative values take
// ten bytes, as in proto3.
func (w *Writer) Varint(field int32, v int64) *Writer {
	return w.Uvarint(field, uint64(v))
}

// SFixed64 writes a little-endian sfixed64 field.
func (w *Writer) SFixed64(field int32, v int64) *Writer {
	if v == 0 {
		return w
	}
	w.key(field, proto.WireFixed64)
	_ = w.buf.EncodeFixed64(uint64(v))
	return w
}

// RawBytes writes a bytes field.
func (w *Writer) RawBytes(field int32, bz []byte) *Writer {
	if len(bz) == 0 {
		return w
	}
	w.key(field, proto.WireBytes)
	_ = w.buf.EncodeRawBytes(bz)
	return w
}

// String writes a string field.
func (w *Writer) String(field int32, s string) *Writer {
	if s == "" {
		return w
	}
	w.key(field, proto.WireBytes)
	_ = w.buf.EncodeStringBytes(s)
	return w
}

// Message writes an embedded message, even when it is empty.
func (w *Writer) Message(field int32, msg []byte) *Writer {
	w.key(field, proto.WireBytes)
	_ = w.buf.EncodeRawBytes(msg)
	return w
}

// Marshal returns the encoded message.
func (w *Writer) Marshal() []byte {
	return w.buf.Bytes()
}

// MarshalDelimited returns msg prefixed with its uvarint encoded length.
func MarshalDelimited(msg []byte) []byte {
	buf := proto.NewBuffer(make([]byte, 0, len(msg)+proto.SizeVarint(uint64(len(msg)))))
	_ = buf.EncodeRawBytes(msg)
	return buf.Bytes()
}
