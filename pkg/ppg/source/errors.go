package source

func (e *SourceError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// SourceError represents sample source errors
type SourceError struct {
	Type    SourceType `json:"type"`
	Target  string     `json:"target"`
	Code    string     `json:"code"`
	Message string     `json:"message"`
	Cause   error      `json:"-"`
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeConnection    = "CONNECTION_FAILED"
	ErrCodeOpen          = "OPEN_FAILED"
	ErrCodeInvalidFormat = "INVALID_FORMAT"
	ErrCodeDecoding      = "DECODING_FAILED"
	ErrCodeUnsupported   = "UNSUPPORTED_SOURCE"
)

// NewSourceError creates a new source error
func NewSourceError(sourceType SourceType, target, code, message string, cause error) *SourceError {
	return &SourceError{
		Type:    sourceType,
		Target:  target,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
