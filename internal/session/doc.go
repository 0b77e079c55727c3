// Package session owns the decoding state of one producer connection.
//
// A Session wires a diff.Dispatcher to a scene.Scene and stamps every
// accepted frame with a logical sequence number. Frames are recorded through
// an optional Recorder (the sqlite store in production) and reported to an
// optional Observer (prometheus metrics).
//
// # Lifecycle
//
// The transport calls Reset when a connection opens or closes. A reset
// clears every decoder's live set and the scene, and bumps the session
// epoch so that recorded frames can be replayed from a clean state:
//
//	sess, _ := session.New(session.WithRecorder(st))
//	sess.Reset("connect")
//	for buf := range frames {
//	    report, err := sess.HandleFrame(ctx, buf)
//	    ...
//	}
//
// # Concurrency
//
// All methods are safe for concurrent use. HandleFrame, Reset and Snapshot
// are serialized by a mutex because the poller goroutine and HTTP handlers
// reach the same session. Decoding itself never blocks or does I/O.
package session
