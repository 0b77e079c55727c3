// Package transport moves frame buffers between a producer and a consumer.
//
// The wire protocol is the one the original viewer speaks: the consumer
// opens a WebSocket, sends the text message "POLL" at a fixed interval, and
// the producer answers every poll with one binary frame holding the full
// current primitive set. There is no outer framing; one WebSocket message is
// one frame.
//
// Poller is the consumer side. It resets the session whenever a connection
// opens or closes, since the producer resends everything on a new
// connection, and reconnects with exponential backoff.
//
// Producer is the serving side, used by the produce command and tests.
//
// Capture files store a sequence of frames on disk for decode, render and
// produce: each frame is a big-endian uint32 length followed by its bytes.
package transport
