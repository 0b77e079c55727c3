// Package harness runs frame scenarios against a consumer session.
//
// # Scenario Format
//
// Scenarios are YAML files. Each frame is written either symbolically or as
// raw hex:
//
//	name: box_steady_state
//	description: "An unchanged frame is a no-op"
//	session: "test-session-0001"
//	frames:
//	  - primitives:
//	      - {type: BOX, material: 255, payload: [0,0,0, 0,0,0, 1,1,1]}
//	    expect: {added: 1, removed: 0, live: 1}
//	  - reset: reconnect
//	    raw: "00000009"
//	    expect: {error: UNKNOWN_TYPE, live: 0}
//	final:
//	  live: 0
//	  types: {BOX: 0}
//
// A document is validated against an embedded CUE schema (schema.cue), then
// decoded with unknown fields rejected, then checked against the primitive
// registry for type names and payload lengths.
//
// # Deterministic Testing
//
// Every run uses a fixed session id (scenario.session, or
// "test-session-default") and a deterministic sequence clock, so identical
// scenarios produce byte-identical traces. RunWithGolden compares that trace
// with testdata/golden/{name}.golden via goldie.
package harness
