package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
	cause   error
}

func (e Errno) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e Errno) Unwrap() error {
	return e.cause
}

// Is matches on Code so that wrapped copies still compare equal to the sentinel.
func (e Errno) Is(target error) bool {
	var t Errno
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// Wrap returns a copy of e carrying cause.
func (e Errno) Wrap(cause error) Errno {
	e.cause = cause
	return e
}

// WithMessage returns a copy of e with a more specific message.
func (e Errno) WithMessage(msg string) Errno {
	e.Message = msg
	return e
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, typed.Error()
	}
	var ptr *Errno
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, ptr.Error()
	}
	return InternalServerError.Code, err.Error()
}

// IsLocalValidation reports whether err was raised before any network call.
func IsLocalValidation(err error) bool {
	code, _ := Decode(err)
	return code >= 20000 && code < 30000
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrTokenInvalid     = Errno{Code: 10003, Message: "Token invalid"}
	ErrNotFound         = Errno{Code: 10004, Message: "Resource not found"}
)

// Local validation errors (20000+): raised before a request is sent
var (
	ErrWalletAddressRequired = Errno{Code: 20101, Message: "Wallet address is required"}
	ErrWalletAddressInvalid  = Errno{Code: 20102, Message: "Invalid wallet address format"}
	ErrSchoolNotInProject    = Errno{Code: 20103, Message: "School does not participate in this project"}
	ErrPhraseMismatch        = Errno{Code: 20201, Message: "Confirmation text does not match"}
	ErrIllegalTransition     = Errno{Code: 20202, Message: "Action not allowed in the current step"}
	ErrNotReady              = Errno{Code: 20203, Message: "Distribution is not ready"}
)

// Session / transport errors (30000+)
var (
	ErrNoSession    = Errno{Code: 30001, Message: "No valid session, please sign in"}
	ErrUnauthorized = Errno{Code: 30002, Message: "Session expired, please sign in again"}
	ErrNetwork      = Errno{Code: 30003, Message: "Network error"}
	ErrBackend      = Errno{Code: 30004, Message: "Backend error"}
	ErrBadResponse  = Errno{Code: 30005, Message: "Unexpected response from backend"}
)

// Workflow errors (40000+)
var (
	ErrAlreadyExecuted   = Errno{Code: 40001, Message: "Distribution was already triggered from this confirmation"}
	ErrExecutionLocked   = Errno{Code: 40002, Message: "Another console is executing this distribution"}
	ErrProjectNotFound   = Errno{Code: 40003, Message: "Project is not eligible for distribution"}
	ErrDistributionFinal = Errno{Code: 40004, Message: "Distribution already reached a terminal state"}
)
