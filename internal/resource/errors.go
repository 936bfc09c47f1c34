package resource

import (
	"errors"
	"fmt"
)

var (
	// ErrClientDead is returned when operating on a disconnected client.
	ErrClientDead = errors.New("client is disconnected")
	// ErrIDInUse is returned when a client reuses a live protocol id.
	ErrIDInUse = errors.New("object id already in use")
	// ErrUnsupportedVersion is returned when a client asks for a newer
	// version than the interface implements.
	ErrUnsupportedVersion = errors.New("unsupported interface version")
)

// ProtocolError is a fatal client error. Posting one terminates the client.
type ProtocolError struct {
	Object    ObjectID
	Interface string
	Code      uint32
	Message   string

	cause error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on %s@%d (code %d): %s", e.Interface, e.Object.Protocol, e.Code, e.Message)
}

// Unwrap returns the request failure the error was raised for, if any.
func (e *ProtocolError) Unwrap() error { return e.cause }

// NewProtocolError builds a protocol error raised on obj.
func NewProtocolError(obj *Object, code uint32, format string, args ...interface{}) *ProtocolError {
	perr := &ProtocolError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
	if obj != nil {
		perr.Object = obj.ID()
		perr.Interface = obj.Interface().Name
	}
	return perr
}
