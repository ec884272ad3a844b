package errors

import sterrors "errors"

var (
	ErrServiceRequired      = sterrors.New("callguard: service is required")
	ErrCallbackRequired     = sterrors.New("callguard: endpoint callback is required")
	ErrEndpointNameRequired = sterrors.New("callguard: endpoint name is required")
	ErrEndpointExists       = sterrors.New("callguard: endpoint is already registered")
	ErrUnknownEndpoint      = sterrors.New("callguard: unknown endpoint")
	ErrGateRequired         = sterrors.New("callguard: middleware gate is required")
	ErrConfigRequired       = sterrors.New("callguard: config is required")
	ErrLoggerRequired       = sterrors.New("callguard: logger is required")
)

// ConfigValidationError wraps the joined validation failures of a Config so
// callers can distinguish bad configuration from other startup errors.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	if e.Err == nil {
		return "callguard: invalid configuration"
	}
	return "callguard: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error { return e.Err }

// NewConfigValidationError wraps err, returning nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
