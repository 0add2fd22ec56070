package service

import (
	"errors"
	"fmt"
)

// Kind classifies a client facing failure.
type Kind int

const (
	KindValidation   Kind = iota + 1 // weak password, duplicate field, bad input
	KindNotFound                     // user, code or token missing
	KindExpired                      // code or token past its window
	KindTypeMismatch                 // code presented to the wrong flow
	KindCredential                   // bad password or login
	KindState                        // already verified, password reuse
	KindForbidden                    // caller lacks a role
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindExpired:
		return "expired"
	case KindTypeMismatch:
		return "type_mismatch"
	case KindCredential:
		return "credential"
	case KindState:
		return "state"
	case KindForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Error is a domain failure safe to show to the caller. Anything that is not
// an *Error is unexpected.
type Error struct {
	Kind   Kind
	Detail string
	Field  string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Detail, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Is matches on kind so errors.Is(err, &Error{Kind: KindExpired}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Detail == "" || t.Detail == e.Detail)
}

func newError(kind Kind, detail, field string) *Error {
	return &Error{Kind: kind, Detail: detail, Field: field}
}

func ValidationError(detail, field string) *Error { return newError(KindValidation, detail, field) }
func NotFoundError(detail, field string) *Error   { return newError(KindNotFound, detail, field) }
func ExpiredError(detail string) *Error           { return newError(KindExpired, detail, "") }
func TypeMismatchError(detail string) *Error      { return newError(KindTypeMismatch, detail, "") }
func CredentialError(detail, field string) *Error { return newError(KindCredential, detail, field) }
func StateError(detail, field string) *Error      { return newError(KindState, detail, field) }
func ForbiddenError(detail string) *Error         { return newError(KindForbidden, detail, "") }

// KindOf returns the kind of a domain error, or 0 for unexpected errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Client facing messages.
const (
	MsgUsernameExists       = "username already exists"
	MsgEmailExists          = "email already exists"
	MsgUserNotFound         = "User not found"
	MsgAlreadyVerified      = "Email already verified"
	MsgNoOTP                = "No otp found"
	MsgOTPExpired           = "OTP expired"
	MsgInvalidOTPType       = "Invalid otp type"
	MsgInvalidCredentials   = "Invalid credentials"
	MsgInvalidToken         = "Invalid token"
	MsgTokenInvalidOrExpire = "Token is invalid or expired"
	MsgInvalidCurrentPass   = "Invalid current password"
	MsgPasswordNotChanged   = "New password must be different"
	MsgEmailNotFound        = "Email not found"
	MsgForbidden            = "You do not have permission to perform this action"
	MsgUnknownRole          = "Role not found"
)
