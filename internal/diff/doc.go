// Package diff decodes primitive frames and computes per-frame deltas.
//
// A frame is one buffer received from the producer. Every primitive type has
// one long-lived Decoder that remembers which ContentKeys are live in the
// scene. Decoding a frame marks the keys seen in the buffer, emits geometry
// only for keys that were not already live, and, once the whole buffer has
// been scanned, reports live keys that were not seen as removed.
//
// FRAME LIFECYCLE:
//
//  1. BeginFrame on every decoder
//  2. Decode each contiguous run of same-type messages
//  3. FinalizeRemoved on every decoder, only after the entire buffer
//  4. Result on every decoder, in type order
//
// Dispatcher runs that lifecycle. A ProtocolError anywhere in the buffer
// rolls every decoder back with AbortFrame, so a frame is either applied in
// full or not at all.
//
// Decoders are single-threaded. Each session owns its own set; nothing is
// shared between sessions.
package diff
