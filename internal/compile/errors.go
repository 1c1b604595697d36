package compile

import (
	"errors"
	"net/http"
)

// Kind classifies a failed compilation request.
type Kind int

const (
	// KindTransport: the request carried no usable upload.
	KindTransport Kind = iota + 1
	// KindPayloadTooLarge: the upload exceeded max_upload_bytes.
	KindPayloadTooLarge
	// KindInvocation: the compiler could not start or exited non-zero.
	KindInvocation
	// KindTimeout: the compiler was killed at its deadline.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindInvocation:
		return "invocation"
	case KindTimeout:
		return "timeout"
	}
	return "internal"
}

// Error is a request-level failure. Err holds the detail for logs only.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNoFile is the transport error for a request without the upload field.
var ErrNoFile = &Error{Kind: KindTransport, Err: errors.New("no file in upload field")}

// KindOf returns the Kind of err, or 0 when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// StatusFor maps err to the HTTP status of the response.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindTransport:
		return http.StatusBadRequest
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// Client-facing messages. Process output never appears in them.
const (
	MsgNoFile       = "No se recibió ningún archivo"
	MsgTooLarge     = "El archivo excede el tamaño máximo permitido"
	MsgTimeout      = "El compilador excedió el tiempo límite"
	MsgCompilerFail = "Error al ejecutar el compilador"
)

// ClientMessage is the generic text shown to the user for err.
func ClientMessage(err error) string {
	switch KindOf(err) {
	case KindTransport:
		return MsgNoFile
	case KindPayloadTooLarge:
		return MsgTooLarge
	case KindTimeout:
		return MsgTimeout
	}
	return MsgCompilerFail
}
