package core

import (
	"fmt"
	"maps"

	"github.com/segmentio/ksuid"
)

// -----------------------------------------------------------------------------
// IDs
// -----------------------------------------------------------------------------

type ID string

func (i ID) String() string {
	return string(i)
}

// MustNewID returns a new sortable unique ID.
func MustNewID() ID {
	return ID(ksuid.New().String())
}

// -----------------------------------------------------------------------------
// Input / Output
// -----------------------------------------------------------------------------

// Input is the single parameter object passed to a capability handler.
type Input map[string]any

// Output is an arbitrary structured value produced by a capability handler.
type Output map[string]any

func (i Input) Copy() Input {
	if i == nil {
		return nil
	}
	out := make(Input, len(i))
	maps.Copy(out, i)
	return out
}

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

type StatusType string

const (
	StatusSuccess StatusType = "success"
	StatusError   StatusType = "error"
)

func (s StatusType) String() string {
	return string(s)
}

// -----------------------------------------------------------------------------
// Error
// -----------------------------------------------------------------------------

// Error is the structured error shape crossing package boundaries.
type Error struct {
	Message string         `json:"message,omitempty"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func NewError(err error, code string, details map[string]any) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: err.Error(),
		Code:    code,
		Details: details,
	}
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}
