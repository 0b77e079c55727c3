// Package primitive owns the wire contract for geometric primitives.
//
// A frame is a flat sequence of fixed-stride messages with no outer framing.
// Each message is self-describing through its leading type id, and the
// registry's per-type MessageSize gives the stride:
//
//	[typeId:int32][materialId:int32][payload: elementCount x float32]
//
// Type ids and element counts are fixed:
//
//	0 UNKNOWN   reserved, never on the wire
//	1 LINE      6 elements, 32 bytes
//	2 BOX       9 elements, 44 bytes
//	3 SPHERE    4 elements, 24 bytes
//	4 CYLINDER  6 elements, 32 bytes
//	5 TRIANGLE  9 elements, 44 bytes
//
// All fields are big-endian.
package primitive
