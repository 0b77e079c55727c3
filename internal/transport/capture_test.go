package transport

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_RoundTrip(t *testing.T) {
	frames := [][]byte{
		{0, 0, 0, 1, 0, 0, 0, 2},
		{},
		bytes.Repeat([]byte{7}, 300),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCapture(&buf, frames))
	assert.Equal(t, 4*3+8+0+300, buf.Len())

	got, err := ReadCapture(&buf)
	require.NoError(t, err)
	assert.Equal(t, frames, got)
}

func TestCapture_LengthPrefixIsBigEndian(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCapture(&buf, [][]byte{make([]byte, 258)}))
	assert.Equal(t, []byte{0, 0, 1, 2}, buf.Bytes()[:4])
}

func TestReadCapture_Empty(t *testing.T) {
	got, err := ReadCapture(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadCapture_Truncated(t *testing.T) {
	_, err := ReadCapture(bytes.NewReader([]byte{0, 0}))
	assert.ErrorContains(t, err, "truncated length")

	_, err = ReadCapture(bytes.NewReader([]byte{0, 0, 0, 5, 1, 2}))
	assert.ErrorContains(t, err, "truncated body")
}

func TestReadCapture_Oversized(t *testing.T) {
	_, err := ReadCapture(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}))
	assert.ErrorContains(t, err, "exceeds limit")
}

func TestCaptureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.cap")
	frames := [][]byte{{1, 2, 3}, {4}}

	require.NoError(t, WriteCaptureFile(path, frames))
	got, err := ReadCaptureFile(path)
	require.NoError(t, err)
	assert.Equal(t, frames, got)

	_, err = ReadCaptureFile(filepath.Join(t.TempDir(), "missing.cap"))
	assert.Error(t, err)
}

func TestCaptureWriter_Frames(t *testing.T) {
	var buf bytes.Buffer
	cw := NewCaptureWriter(&buf)
	require.NoError(t, cw.Write([]byte{1}))
	require.NoError(t, cw.Write([]byte{2}))
	assert.Equal(t, 2, cw.Frames())
	assert.Equal(t, 0, buf.Len(), "buffered until flush")
	require.NoError(t, cw.Flush())
	assert.Equal(t, 10, buf.Len())
}
