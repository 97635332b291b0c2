package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Domain scopes the reasons sent in gRPC error details.
const Domain = "trivia"

type Code codes.Code

const (
	CodeInvalidArgument    = Code(codes.InvalidArgument)
	CodeNotFound           = Code(codes.NotFound)
	CodeAlreadyExists      = Code(codes.AlreadyExists)
	CodePermissionDenied   = Code(codes.PermissionDenied)
	CodeFailedPrecondition = Code(codes.FailedPrecondition)
	CodeResourceExhausted  = Code(codes.ResourceExhausted)
	CodeAborted            = Code(codes.Aborted)
	CodeInternal           = Code(codes.Internal)
	CodeUnauthenticated    = Code(codes.Unauthenticated)
)

func (c Code) String() string {
	return codes.Code(c).String()
}

// MarshalText renders the code by name, e.g. NotFound.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

var code2http = map[Code]int{
	CodeInvalidArgument:    http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeAlreadyExists:      http.StatusConflict,
	CodePermissionDenied:   http.StatusForbidden,
	CodeFailedPrecondition: http.StatusConflict,
	CodeResourceExhausted:  http.StatusUnprocessableEntity,
	CodeAborted:            http.StatusConflict,
	CodeInternal:           http.StatusInternalServerError,
	CodeUnauthenticated:    http.StatusUnauthorized,
}

// Error is the error type returned across service boundaries. Reason is a stable,
// machine readable identifier of the failure, e.g. ALREADY_ANSWERED.
type Error struct {
	Code    Code   `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	err     error
}

func New(code Code, opts ...Option) *Error {
	e := &Error{
		Code:    code,
		Message: codes.Code(code).String(),
	}

	for _, opt := range opts {
		opt.apply(e)
	}

	return e
}

// With returns a copy of e with opts applied. Sentinels stay untouched.
func (e *Error) With(opts ...Option) *Error {
	c := *e
	for _, opt := range opts {
		opt.apply(&c)
	}

	return &c
}

func (e *Error) Error() string {
	s := fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
	if e.Reason != "" {
		s = fmt.Sprintf("code: %d, reason: %s, message: %s", e.Code, e.Reason, e.Message)
	}
	if e.err != nil {
		s += fmt.Sprintf(", err: %s", e.err)
	}

	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is reports whether target is an *Error with the same reason, or the same code
// when neither carries a reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	if e.Reason != "" || t.Reason != "" {
		return e.Reason == t.Reason
	}

	return e.Code == t.Code
}

// GRPCStatus carries the reason as an ErrorInfo detail.
func (e *Error) GRPCStatus() *status.Status {
	st := status.New(codes.Code(e.Code), e.Message)
	if e.Reason == "" {
		return st
	}

	ds, err := st.WithDetails(&errdetails.ErrorInfo{Reason: e.Reason, Domain: Domain})
	if err != nil {
		return st
	}
	return ds
}

// FromGRPC rebuilds the *Error behind a status received from a trivia server.
func FromGRPC(err error) *Error {
	st, ok := status.FromError(err)
	if !ok {
		return Internal(err)
	}

	e := New(Code(st.Code()), WithMessagef("%s", st.Message()))
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.Domain == Domain {
			e.Reason = info.Reason
		}
	}
	return e
}

func (e *Error) HTTPStatusCode() int {
	if c, ok := code2http[e.Code]; ok {
		return c
	}

	return http.StatusInternalServerError
}

func Convert(err error) *Error {
	var e *Error
	if !errors.As(err, &e) {
		return Internal(err)
	}

	return e
}

func Internal(err error) *Error {
	return New(CodeInternal, WithCause(err))
}

// IsDomain reports whether err carries an *Error that is not an internal failure.
// Such errors are definitive answers and must not be retried.
func IsDomain(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code != CodeInternal
}

type Option interface {
	apply(*Error)
}

type optionFunc func(*Error)

func (f optionFunc) apply(e *Error) {
	f(e)
}

func WithCause(err error) Option {
	return optionFunc(func(e *Error) {
		e.err = err
	})
}

func WithReason(reason string) Option {
	return optionFunc(func(e *Error) {
		e.Reason = reason
	})
}

func WithMessagef(format string, args ...any) Option {
	return optionFunc(func(e *Error) {
		e.Message = fmt.Sprintf(format, args...)
	})
}
