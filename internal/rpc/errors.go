package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidLimit = errors.New("limit must be between 1 and 1000")
	ErrNoEndpoints  = errors.New("no RPC endpoints configured")
)

// NetworkError is a transport failure or a non-2xx HTTP status.
type NetworkError struct {
	Endpoint   string
	Method     string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: http status %d", e.Endpoint, e.Method, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Endpoint, e.Method, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteProtocolError is a response that arrived but could not be used: a
// JSON-RPC error envelope, an undecodable body or a missing result.
type RemoteProtocolError struct {
	Endpoint string
	Method   string
	Code     int
	Message  string
	Data     json.RawMessage
	Err      error
}

func (e *RemoteProtocolError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s %s: rpc error %d: %s", e.Endpoint, e.Method, e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Endpoint, e.Method, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Endpoint, e.Method, e.Message)
}

func (e *RemoteProtocolError) Unwrap() error { return e.Err }

// IsFetchError reports whether err came from talking to a node, as opposed to
// a caller mistake such as an invalid argument or a cancelled context.
func IsFetchError(err error) bool {
	var ne *NetworkError
	var pe *RemoteProtocolError
	return errors.As(err, &ne) || errors.As(err, &pe)
}
