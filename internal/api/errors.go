package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
)

// Sentinel errors, one per documented status code plus the offline state.
// RemoteError unwraps to the sentinel matching its status code.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
	ErrOffline      = errors.New("offline")
)

// RemoteError is a non-2xx response from the backend.
type RemoteError struct {
	Op         string
	StatusCode int
	Remote     apigen.Error
}

func (e *RemoteError) Error() string {
	if e.Remote.Detail != "" {
		return fmt.Sprintf("%s: remote error %d: %s", e.Op, e.StatusCode, e.Remote.Detail)
	}
	return fmt.Sprintf("%s: remote error %d", e.Op, e.StatusCode)
}

// Unwrap maps the status code onto the sentinel errors.
func (e *RemoteError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusInternalServerError:
		return ErrServer
	default:
		return nil
	}
}

// NetworkError means the request was sent but no response came back.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: network error: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// RequestError means the request could not be built.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string { return fmt.Sprintf("%s: request error: %v", e.Op, e.Err) }
func (e *RequestError) Unwrap() error { return e.Err }

// DecodeError means a 2xx response did not match the expected schema.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("%s: invalid response: %v", e.Op, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// handleHTTPError consumes the response body and returns a *RemoteError.
func handleHTTPError(op string, resp *http.Response) error {
	var e apigen.Error
	_ = decodeJSON(resp.Body, &e)
	return &RemoteError{Op: op, StatusCode: resp.StatusCode, Remote: e}
}

// Kind is the coarse category of a client error.
type Kind int

const (
	KindNone Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindServer
	KindStatus // any other non-2xx status
	KindNetwork
	KindRequest
	KindDecode
	KindOffline
	KindCanceled
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	case KindStatus:
		return "status"
	case KindNetwork:
		return "network"
	case KindRequest:
		return "request"
	case KindDecode:
		return "decode"
	case KindOffline:
		return "offline"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Classify returns the Kind of err.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		re  *RemoteError
		ne  *NetworkError
		rqe *RequestError
		de  *DecodeError
	)
	switch {
	case errors.As(err, &re):
		switch {
		case errors.Is(err, ErrBadRequest):
			return KindBadRequest
		case errors.Is(err, ErrUnauthorized):
			return KindUnauthorized
		case errors.Is(err, ErrForbidden):
			return KindForbidden
		case errors.Is(err, ErrNotFound):
			return KindNotFound
		case errors.Is(err, ErrServer):
			return KindServer
		default:
			return KindStatus
		}
	case errors.Is(err, ErrOffline):
		return KindOffline
	case errors.As(err, &de):
		return KindDecode
	case errors.As(err, &ne):
		return KindNetwork
	case errors.As(err, &rqe):
		return KindRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}

// StatusCode returns the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode, true
	}
	return 0, false
}
