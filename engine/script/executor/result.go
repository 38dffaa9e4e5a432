package executor

import "github.com/toolweave/toolweave/engine/core"

// Result is the uniform outcome of one script invocation. It is never
// partially filled: either Result or Error is set, and Logs always carries
// the ordered diagnostic lines including the final timing entry.
type Result struct {
	Status core.StatusType `json:"status"`
	Result any             `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Logs   []string        `json:"logs"`
}

func successResult(value any, logs []string) *Result {
	return &Result{Status: core.StatusSuccess, Result: value, Logs: logs}
}

func errorResult(message string, logs []string) *Result {
	return &Result{Status: core.StatusError, Error: message, Logs: logs}
}
