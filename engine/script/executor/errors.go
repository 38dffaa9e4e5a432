package executor

import "fmt"

// Error codes for script execution stages.
const (
	ErrCodeValidation     = "SCRIPT_VALIDATION_ERROR"
	ErrCodeTransform      = "SCRIPT_TRANSFORM_ERROR"
	ErrCodeIterationLimit = "ITERATION_LIMIT_EXCEEDED"
	ErrCodeTimeout        = "SCRIPT_TIMEOUT"
	ErrCodeExecution      = "SCRIPT_EXECUTION_ERROR"
	ErrCodeEscapedAsync   = "ESCAPED_ASYNC_ERROR"
	ErrCodeCanceled       = "SCRIPT_CANCELED"
)

// ExecutionError carries the stage code alongside the self-describing
// message that reaches the script generator.
type ExecutionError struct {
	Code    string
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func newExecutionError(code, message string, err error) *ExecutionError {
	return &ExecutionError{Code: code, Message: message, Err: err}
}
