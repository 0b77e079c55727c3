package diff

import (
	"slices"

	"github.com/roach88/primdiff/internal/hashops"
	"github.com/roach88/primdiff/internal/primitive"
)

// GeometryBuilder turns a newly seen message into a renderer descriptor.
// It is only invoked for primitives that were not already live. The payload
// slice is reused between calls and must not be retained.
type GeometryBuilder[G any] func(key hashops.ContentKey, payload []float32, material int32) G

// Delta is the per-frame change set of one primitive type.
type Delta[G any] struct {
	Added   []G
	Removed []hashops.ContentKey
}

// Decoder is the decode and diff state machine for one primitive type.
//
// The live set carries across frames and is owned by the session that owns
// the decoder. Everything else is per frame.
type Decoder[G any] struct {
	typ   primitive.Type
	build GeometryBuilder[G]

	live map[hashops.ContentKey]struct{}
	seen map[hashops.ContentKey]struct{}

	// fresh holds keys inserted into live this frame so AbortFrame can undo them.
	fresh   []hashops.ContentKey
	added   []G
	removed []hashops.ContentKey
	payload []float32
}

// NewDecoder creates a decoder for t. Panics if t has no wire layout.
func NewDecoder[G any](t primitive.Type, build GeometryBuilder[G]) *Decoder[G] {
	if !t.Decodable() {
		panic("diff: decoder for primitive " + t.Name + " without wire layout")
	}
	if build == nil {
		panic("diff: decoder for primitive " + t.Name + " without geometry builder")
	}
	return &Decoder[G]{
		typ:     t,
		build:   build,
		live:    make(map[hashops.ContentKey]struct{}),
		seen:    make(map[hashops.ContentKey]struct{}),
		payload: make([]float32, 0, t.ElementCount),
	}
}

// Type returns the primitive type this decoder handles.
func (d *Decoder[G]) Type() primitive.Type {
	return d.typ
}

// BeginFrame clears per-frame state. Call once before the first Decode of a frame.
func (d *Decoder[G]) BeginFrame() {
	clear(d.seen)
	d.fresh = d.fresh[:0]
	d.added = nil
	d.removed = nil
}

// Decode scans forward from start in MessageSize strides while the leading
// type id matches this decoder's type.
//
// It returns the offset of the first message it did not consume and the
// number of messages consumed. A non-matching message at start yields
// (start, 0, nil), which tells the caller to try another decoder.
//
// A matching message that runs past the end of buf, or a tail too short to
// hold a type id, is a TRUNCATED ProtocolError. Nothing beyond len(buf) is read.
func (d *Decoder[G]) Decode(buf []byte, start int) (next, n int, err error) {
	size := d.typ.MessageSize
	offset := start
	for ; offset < len(buf); offset += size {
		id, ok := primitive.ReadTypeID(buf, offset)
		if !ok {
			return offset, n, newTruncatedError(offset, -1, primitive.ElementSize, len(buf)-offset)
		}
		if id != d.typ.ID {
			// End of the contiguous run for this type.
			break
		}
		if offset+size > len(buf) {
			return offset, n, newTruncatedError(offset, int32(id), size, len(buf)-offset)
		}
		n++

		key := hashops.Bytes(buf, offset, offset+size)
		if _, dup := d.seen[key]; dup {
			// Same message sent twice in one buffer.
			continue
		}
		d.seen[key] = struct{}{}

		if _, ok := d.live[key]; ok {
			// Unchanged since the last frame.
			continue
		}
		d.live[key] = struct{}{}
		d.fresh = append(d.fresh, key)

		d.payload = primitive.AppendPayload(d.payload[:0], buf, offset, d.typ)
		d.added = append(d.added, d.build(key, d.payload, primitive.ReadMaterial(buf, offset)))
	}
	return offset, n, nil
}

// FinalizeRemoved moves every live key that was not seen this frame into the
// removed list. Call only after the entire buffer has been scanned; calling
// it earlier would drop primitives that appear later in the buffer.
//
// Removed keys are reported in ascending order.
func (d *Decoder[G]) FinalizeRemoved() {
	for key := range d.live {
		if _, ok := d.seen[key]; !ok {
			d.removed = append(d.removed, key)
		}
	}
	for _, key := range d.removed {
		delete(d.live, key)
	}
	slices.Sort(d.removed)
}

// AbortFrame undoes the current frame after a failed scan: keys added to the
// live set this frame are dropped and per-frame state is cleared. Removals
// are never applied before FinalizeRemoved, so the live set is back to its
// state before BeginFrame.
func (d *Decoder[G]) AbortFrame() {
	for _, key := range d.fresh {
		delete(d.live, key)
	}
	d.BeginFrame()
}

// Result returns the delta of the current frame.
func (d *Decoder[G]) Result() Delta[G] {
	return Delta[G]{Added: d.added, Removed: d.removed}
}

// ResetSession clears the live set and per-frame state. The next frame
// starts from an empty scene.
func (d *Decoder[G]) ResetSession() {
	clear(d.live)
	d.BeginFrame()
}

// LiveCount returns the number of live primitives of this type.
func (d *Decoder[G]) LiveCount() int {
	return len(d.live)
}

// Live reports whether key is currently live.
func (d *Decoder[G]) Live(key hashops.ContentKey) bool {
	_, ok := d.live[key]
	return ok
}

// SeenCount returns the number of distinct keys seen in the current frame.
func (d *Decoder[G]) SeenCount() int {
	return len(d.seen)
}
