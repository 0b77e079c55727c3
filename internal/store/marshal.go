package store

import (
	"fmt"
	"sync"

	cbor "github.com/fxamacker/cbor/v2"

	"github.com/roach88/primdiff/internal/hashops"
)

// frameDelta is the CBOR layout of the frames.delta column.
type frameDelta struct {
	Added   []uint64 `cbor:"1,keyasint"`
	Removed []uint64 `cbor:"2,keyasint"`
}

type deltaCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// codec returns the deterministic CBOR modes shared by all stores, so the
// same delta always encodes to the same bytes.
var codec = sync.OnceValues(func() (deltaCodec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return deltaCodec{}, err
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return deltaCodec{}, err
	}
	return deltaCodec{enc: em, dec: dm}, nil
})

func marshalDelta(added, removed []hashops.ContentKey) ([]byte, error) {
	c, err := codec()
	if err != nil {
		return nil, fmt.Errorf("cbor codec: %w", err)
	}
	data, err := c.enc.Marshal(frameDelta{Added: toWords(added), Removed: toWords(removed)})
	if err != nil {
		return nil, fmt.Errorf("marshal delta: %w", err)
	}
	return data, nil
}

func unmarshalDelta(data []byte) (added, removed []hashops.ContentKey, err error) {
	c, err := codec()
	if err != nil {
		return nil, nil, fmt.Errorf("cbor codec: %w", err)
	}
	var d frameDelta
	if err := c.dec.Unmarshal(data, &d); err != nil {
		return nil, nil, fmt.Errorf("unmarshal delta: %w", err)
	}
	return fromWords(d.Added), fromWords(d.Removed), nil
}

func toWords(keys []hashops.ContentKey) []uint64 {
	out := make([]uint64, len(keys))
	for i, k := range keys {
		out[i] = uint64(k)
	}
	return out
}

func fromWords(words []uint64) []hashops.ContentKey {
	out := make([]hashops.ContentKey, len(words))
	for i, w := range words {
		out[i] = hashops.ContentKey(w)
	}
	return out
}
