package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeConflict          Code = "CONFLICT"
	CodeInternal          Code = "INTERNAL"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func Invalid(msg string) *Error           { return &Error{Code: CodeInvalidArgument, Message: msg} }
func NotFound(msg string) *Error          { return &Error{Code: CodeNotFound, Message: msg} }
func InvalidState(msg string) *Error      { return &Error{Code: CodeInvalidState, Message: msg} }
func InsufficientStock(msg string) *Error { return &Error{Code: CodeInsufficientStock, Message: msg} }
func Conflict(msg string) *Error          { return &Error{Code: CodeConflict, Message: msg} }
func Internal(msg string) *Error          { return &Error{Code: CodeInternal, Message: msg} }

func Invalidf(format string, a ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, a...)}
}

func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func ToHTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		switch e.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeInvalidState, CodeInsufficientStock, CodeConflict:
			return http.StatusConflict
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

type DTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func Body(code Code, msg string) DTO {
	var d DTO
	d.Error.Code = code
	d.Error.Message = msg
	return d
}

// BodyFromErr keeps internal details out of the response: anything that is not
// an *Error goes out as INTERNAL with its message only.
func BodyFromErr(err error) DTO {
	var e *Error
	if errors.As(err, &e) {
		return Body(e.Code, e.Message)
	}
	return Body(CodeInternal, err.Error())
}
