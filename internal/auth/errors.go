package auth

import (
	"errors"
	"net/http"
)

// ErrorKind classifies failures for the HTTP layer. Only Message of an
// *Error reaches clients; the wrapped cause is for logs.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindBadRequest
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind to a response status.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

const (
	MsgEmailTaken         = "User with this email already exists."
	MsgBadCredentials     = "Incorrect email or password"
	MsgEmailNotConfirmed  = "Email not confirmed"
	MsgInvalidCredentials = "Could not validate credentials"
	MsgVerificationError  = "Verification error"
	MsgInternal           = "internal server error"

	MsgEmailConfirmed   = "Email confirmed"
	MsgAlreadyConfirmed = "Your email is already confirmed"
	MsgCheckEmail       = "Check your email for confirmation."
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrEmptyPassword = errors.New("empty password")
)

type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err. Errors that are not *Error are internal.
func KindOf(err error) ErrorKind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindInternal
}

// PublicMessage is the text safe to show a client for err.
func PublicMessage(err error) string {
	var authErr *Error
	if errors.As(err, &authErr) && authErr.Kind != KindInternal {
		return authErr.Message
	}
	return MsgInternal
}

func validationError(err error) *Error {
	return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
}

func conflictError(err error) *Error {
	return &Error{Kind: KindConflict, Message: MsgEmailTaken, Err: err}
}

func unauthorized(message string, cause error) *Error {
	return &Error{Kind: KindUnauthorized, Message: message, Err: cause}
}

func badRequest(message string, cause error) *Error {
	return &Error{Kind: KindBadRequest, Message: message, Err: cause}
}

func internalError(cause error) *Error {
	return &Error{Kind: KindInternal, Message: MsgInternal, Err: cause}
}
