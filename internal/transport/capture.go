package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// MaxFrameSize bounds a single frame in a capture file.
const MaxFrameSize = 64 << 20

// CaptureWriter appends frames to a capture stream.
type CaptureWriter struct {
	w      *bufio.Writer
	frames int
}

// NewCaptureWriter wraps w. Call Flush when done.
func NewCaptureWriter(w io.Writer) *CaptureWriter {
	return &CaptureWriter{w: bufio.NewWriter(w)}
}

// Write appends one frame.
func (c *CaptureWriter) Write(frame []byte) error {
	if len(frame) > MaxFrameSize {
		return fmt.Errorf("capture frame %d: %d bytes exceeds limit of %d", c.frames, len(frame), MaxFrameSize)
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(frame)))
	if _, err := c.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("capture frame %d: %w", c.frames, err)
	}
	if _, err := c.w.Write(frame); err != nil {
		return fmt.Errorf("capture frame %d: %w", c.frames, err)
	}
	c.frames++
	return nil
}

// Frames returns the number of frames written.
func (c *CaptureWriter) Frames() int {
	return c.frames
}

// Flush writes any buffered data to the underlying writer.
func (c *CaptureWriter) Flush() error {
	return c.w.Flush()
}

// WriteCapture writes all frames to w.
func WriteCapture(w io.Writer, frames [][]byte) error {
	cw := NewCaptureWriter(w)
	for _, f := range frames {
		if err := cw.Write(f); err != nil {
			return err
		}
	}
	return cw.Flush()
}

// ReadCapture reads every frame from r.
func ReadCapture(r io.Reader) ([][]byte, error) {
	br := bufio.NewReader(r)
	frames := [][]byte{}
	for {
		var hdr [4]byte
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			return nil, fmt.Errorf("capture frame %d: truncated length: %w", len(frames), err)
		}
		size := binary.BigEndian.Uint32(hdr[:])
		if size > MaxFrameSize {
			return nil, fmt.Errorf("capture frame %d: %d bytes exceeds limit of %d", len(frames), size, MaxFrameSize)
		}
		frame := make([]byte, size)
		if _, err := io.ReadFull(br, frame); err != nil {
			return nil, fmt.Errorf("capture frame %d: truncated body: %w", len(frames), err)
		}
		frames = append(frames, frame)
	}
}

// ReadCaptureFile reads a capture file from disk.
func ReadCaptureFile(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()
	return ReadCapture(f)
}

// WriteCaptureFile writes frames to path, replacing any existing file.
func WriteCaptureFile(path string, frames [][]byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create capture: %w", err)
	}
	if err := WriteCapture(f, frames); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
