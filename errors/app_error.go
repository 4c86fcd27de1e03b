package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Kind tells which layer produced an internal error.
type Kind string

const (
	KindNone    Kind = ""
	KindStore   Kind = "store"
	KindDecode  Kind = "decode"
	KindEncode  Kind = "encode"
	KindWebRTC  Kind = "webrtc"
	KindMailbox Kind = "mailbox"
	KindOther   Kind = "other"
)

// AppError is the error value replied to clients inside a Response payload.
// Status is an HTTP-like class, Code the application code sent on the wire.
type AppError struct {
	Status  int
	Code    uint32
	Message string
	Kind    Kind
	Err     error
}

func newTemplate(status int, code uint32, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

var (
	BadRequest              = newTemplate(http.StatusBadRequest, http.StatusBadRequest, "Bad request")
	Unauthorized            = newTemplate(http.StatusUnauthorized, http.StatusUnauthorized, "Unauthorized")
	NotFound                = newTemplate(http.StatusNotFound, http.StatusNotFound, "Not found")
	Conflict                = newTemplate(http.StatusConflict, http.StatusConflict, "Conflict")
	InternalServerError     = newTemplate(http.StatusInternalServerError, http.StatusInternalServerError, "Internal server error")
	RoomNameTooShort        = newTemplate(http.StatusBadRequest, 3001, "Room name is too short")
	RoomNameTooLong         = newTemplate(http.StatusBadRequest, 3002, "Room name is too long")
	UsernameTooShort        = newTemplate(http.StatusBadRequest, 3003, "Username is too short")
	UsernameTooLong         = newTemplate(http.StatusBadRequest, 3004, "Username is too long")
	MessageContentTooShort  = newTemplate(http.StatusBadRequest, 3005, "Message content is too short")
	MessageContentTooLong   = newTemplate(http.StatusBadRequest, 3006, "Message content is too long")
	UsernameTaken           = newTemplate(http.StatusBadRequest, 4001, "The username is taken")
	WebRtcOfferNotRequested = newTemplate(http.StatusBadRequest, 4002, "WebRTC offer wasn't requested")
)

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%d): %v", e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches two application errors by their wire code.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !stderrors.As(target, &other) {
		return false
	}
	return other.Code == e.Code && other.Status == e.Status
}

// Wrap returns a copy of the template carrying a cause.
func (e *AppError) Wrap(kind Kind, err error) *AppError {
	cp := *e
	cp.Kind = kind
	cp.Err = err
	return &cp
}

// SafeMessage returns what may be shown to the remote side.
// Server-class errors are logged and masked.
func (e *AppError) SafeMessage(log *slog.Logger) string {
	if e.Status >= http.StatusInternalServerError {
		log.Error("Internal error", "code", e.Code, "kind", e.Kind, "error", e.Err)
		return InternalServerError.Message
	}
	return e.Message
}

// Internal wraps an infrastructure failure into a 500.
func Internal(kind Kind, err error) *AppError {
	return InternalServerError.Wrap(kind, err)
}

// From converts any error returned by a handler into an AppError.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.Is(err, ErrNotFound):
		return NotFound.Wrap(KindStore, err)
	case stderrors.Is(err, ErrDuplicateKey):
		return Conflict.Wrap(KindStore, err)
	default:
		return Internal(KindOther, err)
	}
}
