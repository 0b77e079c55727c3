// Package hashops derives primitive identity from message content.
//
// The wire protocol carries no object ids. A primitive is identified by the
// FNV-1a style hash of its raw message bytes, so two byte-identical messages
// always map to the same ContentKey wherever they appear in a buffer.
//
// Collisions are assumed negligible and are not defended against.
package hashops

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// FNV-1a 64-bit parameters.
const (
	Offset ContentKey = 0xcbf29ce484222325
	Prime  ContentKey = 0x100000001b3
)

// ContentKey is the 64-bit identity of one wire message.
type ContentKey uint64

// String renders the key as 16 lowercase hex digits.
func (k ContentKey) String() string {
	return fmt.Sprintf("%016x", uint64(k))
}

// MarshalText encodes the key in its hex form, so JSON carries it as a string.
func (k ContentKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the hex form.
func (k *ContentKey) UnmarshalText(b []byte) error {
	v, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseKey parses the String form of a key.
func ParseKey(s string) (ContentKey, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse content key %q: %w", s, err)
	}
	return ContentKey(v), nil
}

// Bytes hashes buf[start:limit].
//
// Whole 8-byte big-endian words are folded first, then at most one 4-byte
// word, then any trailing bytes one at a time. Every byte in range is folded
// exactly once. Panics if the range is outside buf, like a slice expression.
func Bytes(buf []byte, start, limit int) ContentKey {
	b := buf[start:limit]
	h := Offset
	i := 0
	for ; i+8 <= len(b); i += 8 {
		h = (h ^ ContentKey(binary.BigEndian.Uint64(b[i:]))) * Prime
	}
	if i+4 <= len(b) {
		h = (h ^ ContentKey(binary.BigEndian.Uint32(b[i:]))) * Prime
		i += 4
	}
	for ; i < len(b); i++ {
		h = (h ^ ContentKey(b[i])) * Prime
	}
	return h
}

// Number folds a single integer into h.
func Number(v int64, h ContentKey) ContentKey {
	return (h ^ ContentKey(uint64(v))) * Prime
}

// Numbers hashes a small integer sequence, seeded with Offset.
func Numbers(vs ...int64) ContentKey {
	h := Offset
	for _, v := range vs {
		h = Number(v, h)
	}
	return h
}
