package primitive

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ByteOrder is fixed by the producer. Both header fields and payload
// elements use it.
var ByteOrder = binary.BigEndian

// Message is the decoded form of one wire record:
//
//	[typeId:int32][materialId:int32][payload: elementCount x float32]
type Message struct {
	Kind     Kind
	Material int32
	Payload  []float32
}

// AppendMessage encodes m using layout t and appends it to dst.
func AppendMessage(dst []byte, t Type, m Message) ([]byte, error) {
	if !t.Decodable() {
		return dst, fmt.Errorf("primitive %s: type has no wire layout", t.Name)
	}
	if m.Kind != t.ID {
		return dst, fmt.Errorf("primitive %s: message kind %d does not match type id %d", t.Name, m.Kind, t.ID)
	}
	if len(m.Payload) != t.ElementCount {
		return dst, fmt.Errorf("primitive %s: payload has %d elements, want %d", t.Name, len(m.Payload), t.ElementCount)
	}

	dst = ByteOrder.AppendUint32(dst, uint32(m.Kind))
	dst = ByteOrder.AppendUint32(dst, uint32(m.Material))
	for _, v := range m.Payload {
		dst = ByteOrder.AppendUint32(dst, math.Float32bits(v))
	}
	return dst, nil
}

// EncodeFrame packs msgs back to back, in order, using the layouts in reg.
func EncodeFrame(reg *Registry, msgs ...Message) ([]byte, error) {
	size := 0
	for _, m := range msgs {
		t, ok := reg.Lookup(m.Kind)
		if !ok {
			return nil, fmt.Errorf("encode frame: unknown primitive id %d", m.Kind)
		}
		size += t.MessageSize
	}

	buf := make([]byte, 0, size)
	for i, m := range msgs {
		t, _ := reg.Lookup(m.Kind)
		var err error
		buf, err = AppendMessage(buf, t, m)
		if err != nil {
			return nil, fmt.Errorf("encode frame: message %d: %w", i, err)
		}
	}
	return buf, nil
}

// ReadTypeID reads the leading type id of the message at offset.
// ok is false when fewer than four bytes remain.
func ReadTypeID(buf []byte, offset int) (id Kind, ok bool) {
	if offset < 0 || offset+ElementSize > len(buf) {
		return 0, false
	}
	return Kind(int32(ByteOrder.Uint32(buf[offset:]))), true
}

// ReadMaterial reads the material id of the message at offset.
// The caller guarantees the header is in bounds.
func ReadMaterial(buf []byte, offset int) int32 {
	return int32(ByteOrder.Uint32(buf[offset+ElementSize:]))
}

// AppendPayload decodes the payload of the message at offset into dst.
// The caller guarantees the whole message is in bounds.
func AppendPayload(dst []float32, buf []byte, offset int, t Type) []float32 {
	for e := offset + t.HeaderSize; e < offset+t.MessageSize; e += t.ElementSize {
		dst = append(dst, math.Float32frombits(ByteOrder.Uint32(buf[e:])))
	}
	return dst
}
