// Package tool defines the host-capability contract: named asynchronous
// operations the orchestration scripts may call.
package tool

import (
	"context"
	"fmt"
	"regexp"

	"github.com/toolweave/toolweave/engine/core"
)

// Handler executes one capability call. It receives the parameter object the
// script passed and must return a value or an error; the execution layer
// normalizes errors into readable strings before they reach the script.
type Handler func(ctx context.Context, input core.Input) (any, error)

// identRegexp matches the names scripts can call as bare identifiers.
var identRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Definition describes one capability exposed to scripts.
type Definition struct {
	// ID is the bare identifier scripts call the capability by.
	ID string
	// Description is rendered into the capability list shown to the
	// script generator.
	Description string
	Handler     Handler
}

// Validate checks the definition is callable from script source.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("tool definition requires an ID")
	}
	if !identRegexp.MatchString(d.ID) {
		return fmt.Errorf("tool ID %q is not a valid script identifier", d.ID)
	}
	if d.Handler == nil {
		return fmt.Errorf("tool %q requires a handler", d.ID)
	}
	return nil
}
