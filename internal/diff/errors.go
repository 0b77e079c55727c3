package diff

import (
	"errors"
	"fmt"
)

// ProtocolError reports that a frame could not be decoded because the stream
// is desynchronized. It is fatal to the frame: the frame is rejected
// wholesale and the transport decides whether to drop the session.
//
// Duplicate messages and already-live primitives are not errors.
type ProtocolError struct {
	// Code identifies the error category.
	Code ProtocolErrorCode

	// Offset is the byte offset of the offending message.
	Offset int

	// TypeID is the type id read at Offset, when one could be read.
	TypeID int32

	// Message is a human-readable description.
	Message string
}

// ProtocolErrorCode categorizes protocol errors.
type ProtocolErrorCode string

const (
	// CodeUnknownType indicates a type id with no registered decoder.
	CodeUnknownType ProtocolErrorCode = "UNKNOWN_TYPE"

	// CodeTruncated indicates a message running past the end of the buffer.
	CodeTruncated ProtocolErrorCode = "TRUNCATED"

	// CodeNoProgress indicates a scan step that did not advance the offset.
	CodeNoProgress ProtocolErrorCode = "NO_PROGRESS"
)

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s (offset=%d, type=%d)", e.Code, e.Message, e.Offset, e.TypeID)
}

// IsProtocolError returns true if err is or wraps a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsUnknownType returns true if err is an unknown type id error.
func IsUnknownType(err error) bool {
	return hasCode(err, CodeUnknownType)
}

// IsTruncated returns true if err is a truncated message error.
func IsTruncated(err error) bool {
	return hasCode(err, CodeTruncated)
}

// CodeOf extracts the error code, or "" if err is not a ProtocolError.
func CodeOf(err error) ProtocolErrorCode {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

func hasCode(err error, code ProtocolErrorCode) bool {
	return CodeOf(err) == code
}

func newUnknownTypeError(offset int, typeID int32) *ProtocolError {
	return &ProtocolError{
		Code:    CodeUnknownType,
		Offset:  offset,
		TypeID:  typeID,
		Message: fmt.Sprintf("primitive id %d is invalid", typeID),
	}
}

func newTruncatedError(offset int, typeID int32, need, have int) *ProtocolError {
	return &ProtocolError{
		Code:    CodeTruncated,
		Offset:  offset,
		TypeID:  typeID,
		Message: fmt.Sprintf("message needs %d bytes, %d remain", need, have),
	}
}

func newNoProgressError(offset int, typeID int32) *ProtocolError {
	return &ProtocolError{
		Code:    CodeNoProgress,
		Offset:  offset,
		TypeID:  typeID,
		Message: "decoder consumed no bytes",
	}
}
