// Package errs provides types and support related to web error functionality.
package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// Error represents an error in the system.
type Error struct {
	Code     ErrCode `json:"code"`
	Message  string  `json:"message"`
	Fields   any     `json:"fields,omitempty"`
	FuncName string  `json:"-"`
	FileName string  `json:"-"`
}

// New constructs an error based on an app error. Field errors found in the
// chain are kept as the fields of the response.
func New(code ErrCode, err error) *Error {
	pc, filename, line, _ := runtime.Caller(1)

	e := Error{
		Code:     code,
		Message:  err.Error(),
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
	}

	if fe := GetFieldErrors(err); fe != nil {
		e.Fields = fe
	}

	return &e
}

// Errorf constructs an error based on a error message.
func Errorf(code ErrCode, format string, v ...any) *Error {
	pc, filename, line, _ := runtime.Caller(1)

	return &Error{
		Code:     code,
		Message:  fmt.Sprintf(format, v...),
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
	}
}

// WithFields attaches a payload the client receives next to the message.
func (e *Error) WithFields(fields any) *Error {
	e.Fields = fields
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Encode implements the web.Encoder interface. Every error goes out in the
// same envelope the successful responses use.
func (e *Error) Encode() ([]byte, string, error) {
	msg := e.Message
	if e.Code.Equal(InternalOnlyLog) {
		msg = http.StatusText(http.StatusInternalServerError)
	}

	env := struct {
		Success bool    `json:"success"`
		Code    ErrCode `json:"code"`
		Message string  `json:"message"`
		Fields  any     `json:"fields,omitempty"`
	}{
		Code:    e.Code,
		Message: msg,
		Fields:  e.Fields,
	}

	data, err := json.Marshal(env)
	return data, "application/json", err
}

// HTTPStatus implements the web package httpStatus interface so the
// web package can respond with the correct status code.
func (e *Error) HTTPStatus() int {
	return httpStatus[e.Code]
}

// Equal provides support for the go-cmp package and testing.
func (e *Error) Equal(e2 *Error) bool {
	return e.Code == e2.Code && e.Message == e2.Message
}

// IsError tests the concrete error is of the Error type.
func IsError(err error) bool {
	var er *Error
	return errors.As(err, &er)
}

// GetError returns a copy of the Error pointer.
func GetError(err error) *Error {
	var er *Error
	if !errors.As(err, &er) {
		return nil
	}

	return er
}
