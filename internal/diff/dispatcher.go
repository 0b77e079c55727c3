package diff

import (
	"fmt"

	"github.com/roach88/primdiff/internal/hashops"
	"github.com/roach88/primdiff/internal/primitive"
)

// TypeDelta is one decoder's delta within a frame.
type TypeDelta[G any] struct {
	Type primitive.Type
	Delta[G]
}

// Frame is the aggregate result of dispatching one buffer.
type Frame[G any] struct {
	// Deltas holds one entry per decoder, in type id order.
	Deltas []TypeDelta[G]

	// Messages is the number of messages scanned, including duplicates and
	// unchanged primitives.
	Messages int

	// Bytes is the size of the buffer.
	Bytes int
}

// Added concatenates the added descriptors of every type, in type order.
func (f Frame[G]) Added() []G {
	var out []G
	for _, td := range f.Deltas {
		out = append(out, td.Added...)
	}
	return out
}

// Removed concatenates the removed keys of every type, in type order.
func (f Frame[G]) Removed() []hashops.ContentKey {
	var out []hashops.ContentKey
	for _, td := range f.Deltas {
		out = append(out, td.Removed...)
	}
	return out
}

// Empty reports whether the frame changed nothing.
func (f Frame[G]) Empty() bool {
	for _, td := range f.Deltas {
		if len(td.Added) > 0 || len(td.Removed) > 0 {
			return false
		}
	}
	return true
}

// Dispatcher routes each contiguous run of a buffer to the decoder for its
// type and runs the frame lifecycle across all decoders.
//
// The set of decoders is closed: one per decodable type in the registry,
// built once by NewDispatcher.
type Dispatcher[G any] struct {
	decoders []*Decoder[G]
	byID     map[primitive.Kind]*Decoder[G]
}

// NewDispatcher creates one decoder per decodable type in reg. Every such
// type needs a builder.
func NewDispatcher[G any](reg *primitive.Registry, builders map[primitive.Kind]GeometryBuilder[G]) (*Dispatcher[G], error) {
	known := reg.Known()
	d := &Dispatcher[G]{
		decoders: make([]*Decoder[G], 0, len(known)),
		byID:     make(map[primitive.Kind]*Decoder[G], len(known)),
	}
	for _, t := range known {
		build, ok := builders[t.ID]
		if !ok || build == nil {
			return nil, fmt.Errorf("dispatcher: no geometry builder for primitive %s", t.Name)
		}
		dec := NewDecoder(t, build)
		d.decoders = append(d.decoders, dec)
		d.byID[t.ID] = dec
	}
	return d, nil
}

// Decoder returns the decoder for id.
func (d *Dispatcher[G]) Decoder(id primitive.Kind) (*Decoder[G], bool) {
	dec, ok := d.byID[id]
	return dec, ok
}

// Dispatch decodes one frame and returns its aggregate delta.
//
// On a ProtocolError every decoder is rolled back and the frame is rejected
// wholesale: live sets are left exactly as they were.
func (d *Dispatcher[G]) Dispatch(buf []byte) (Frame[G], error) {
	for _, dec := range d.decoders {
		dec.BeginFrame()
	}

	messages, err := d.scan(buf)
	if err != nil {
		for _, dec := range d.decoders {
			dec.AbortFrame()
		}
		return Frame[G]{}, err
	}

	// Only now is it safe to decide what disappeared.
	for _, dec := range d.decoders {
		dec.FinalizeRemoved()
	}

	frame := Frame[G]{
		Deltas:   make([]TypeDelta[G], len(d.decoders)),
		Messages: messages,
		Bytes:    len(buf),
	}
	for i, dec := range d.decoders {
		frame.Deltas[i] = TypeDelta[G]{Type: dec.Type(), Delta: dec.Result()}
	}
	return frame, nil
}

func (d *Dispatcher[G]) scan(buf []byte) (int, error) {
	messages := 0
	for offset := 0; offset < len(buf); {
		id, ok := primitive.ReadTypeID(buf, offset)
		if !ok {
			return messages, newTruncatedError(offset, -1, primitive.ElementSize, len(buf)-offset)
		}
		dec, ok := d.byID[id]
		if !ok {
			return messages, newUnknownTypeError(offset, int32(id))
		}
		next, n, err := dec.Decode(buf, offset)
		if err != nil {
			return messages, err
		}
		if next <= offset {
			return messages, newNoProgressError(offset, int32(id))
		}
		messages += n
		offset = next
	}
	return messages, nil
}

// Reset clears every decoder's live set. The transport calls it when a
// session connects or disconnects.
func (d *Dispatcher[G]) Reset() {
	for _, dec := range d.decoders {
		dec.ResetSession()
	}
}

// LiveCount returns the number of live primitives across all types.
func (d *Dispatcher[G]) LiveCount() int {
	total := 0
	for _, dec := range d.decoders {
		total += dec.LiveCount()
	}
	return total
}

// Types returns the decoded types in dispatch order.
func (d *Dispatcher[G]) Types() []primitive.Type {
	out := make([]primitive.Type, len(d.decoders))
	for i, dec := range d.decoders {
		out[i] = dec.Type()
	}
	return out
}
