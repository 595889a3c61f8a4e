package main

import (
	"errors"
	"fmt"
	"net/http"
)

type faultKind int

const (
	faultValidation faultKind = iota
	faultNotFound
	faultConflict
	faultPermission
	faultPrecondition
)

// requestFault is a per-request failure surfaced to the caller of the failing
// operation. No fault leaves game state partially mutated.
type requestFault struct {
	kind faultKind
	msg  string
}

func (f *requestFault) Error() string {
	return f.msg
}

func validationFault(format string, args ...any) error {
	return &requestFault{kind: faultValidation, msg: fmt.Sprintf(format, args...)}
}

func notFoundFault(format string, args ...any) error {
	return &requestFault{kind: faultNotFound, msg: fmt.Sprintf(format, args...)}
}

func conflictFault(format string, args ...any) error {
	return &requestFault{kind: faultConflict, msg: fmt.Sprintf(format, args...)}
}

func permissionFault(format string, args ...any) error {
	return &requestFault{kind: faultPermission, msg: fmt.Sprintf(format, args...)}
}

func preconditionFault(format string, args ...any) error {
	return &requestFault{kind: faultPrecondition, msg: fmt.Sprintf(format, args...)}
}

func faultIs(err error, kind faultKind) bool {
	var fault *requestFault
	return errors.As(err, &fault) && fault.kind == kind
}

func httpStatusFor(err error) int {
	var fault *requestFault
	if !errors.As(err, &fault) {
		return http.StatusInternalServerError
	}

	switch fault.kind {
	case faultValidation:
		return http.StatusBadRequest
	case faultNotFound:
		return http.StatusNotFound
	case faultConflict:
		return http.StatusConflict
	case faultPermission:
		return http.StatusForbidden
	case faultPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
