// Package executor runs validated orchestration scripts inside a sandboxed
// ES runtime: it builds the capability environment, drives the
// validate → transform → execute pipeline, and enforces the time and
// iteration budgets.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/toolweave/toolweave/engine/core"
	"github.com/toolweave/toolweave/engine/script"
	"github.com/toolweave/toolweave/engine/tool"
	"github.com/toolweave/toolweave/pkg/logger"
)

// LLMFunc is the text-generation capability exposed to scripts as
// llm(instruction, data).
type LLMFunc func(ctx context.Context, instruction string, payload any) (any, error)

// reservedNames are bindings the environment installs itself; capabilities
// must not shadow them.
var reservedNames = map[string]struct{}{
	"llm":                  {},
	"log":                  {},
	"chunk":                {},
	"batch":                {},
	"range":                {},
	"flatten":              {},
	"unique":               {},
	"groupBy":              {},
	"parseJSON":            {},
	"store":                {},
	"output":               {},
	"__mapLimit":           {},
	script.MapFuncName:     {},
	script.GuardFuncName:   {},
	script.ResolveFuncName: {},
	script.RejectFuncName:  {},
}

// Executor validates, transforms, and runs orchestration scripts against a
// fixed capability registry. One Executor serves one logical session; its
// store and output buffer persist across invocations, and the caller must
// invoke Execute sequentially per session.
type Executor struct {
	registry   *tool.Registry
	llm        LLMFunc
	config     *Config
	store      *SessionStore
	output     *OutputBuffer
	asyncNames map[string]struct{}
	chunker    *tokenChunker
}

// New builds an Executor over the given capability registry.
func New(registry *tool.Registry, opts ...Option) (*Executor, error) {
	if registry == nil {
		registry = tool.NewRegistry()
	}
	e := &Executor{registry: registry, config: &Config{}}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.config.applyDefaults(); err != nil {
		return nil, err
	}
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	for _, name := range registry.Names() {
		if _, reserved := reservedNames[name]; reserved {
			return nil, fmt.Errorf("tool %q collides with a built-in binding", name)
		}
	}
	if e.store == nil {
		e.store = NewSessionStore()
	}
	if e.output == nil {
		e.output = NewOutputBuffer()
	}
	e.chunker = newTokenChunker()
	e.asyncNames = make(map[string]struct{}, registry.Len()+1)
	for _, name := range registry.Names() {
		e.asyncNames[name] = struct{}{}
	}
	if e.llm != nil {
		e.asyncNames["llm"] = struct{}{}
	}
	return e, nil
}

// AsyncNames returns a copy of the capability names treated as asynchronous.
func (e *Executor) AsyncNames() map[string]struct{} {
	names := make(map[string]struct{}, len(e.asyncNames))
	for name := range e.asyncNames {
		names[name] = struct{}{}
	}
	return names
}

// Store returns the session store shared across this executor's invocations.
func (e *Executor) Store() *SessionStore {
	return e.store
}

// Output returns the output buffer shared across this executor's invocations.
func (e *Executor) Output() *OutputBuffer {
	return e.output
}

// Execute runs one script invocation through validate → transform → execute
// and returns the uniform result. Nothing is retried internally; the error
// messages are written so the calling agent can re-prompt a script fix.
func (e *Executor) Execute(ctx context.Context, source string, description string) *Result {
	log := logger.FromContext(ctx)
	execID := core.MustNewID()
	started := time.Now()
	if description != "" {
		log.Debug("executing script", "exec_id", execID, "description", description)
	} else {
		log.Debug("executing script", "exec_id", execID)
	}

	validation := script.Validate(source)
	if !validation.Valid {
		log.Debug("script validation failed",
			"exec_id", execID, "diagnostics", len(validation.Diagnostics))
		return e.failed(started, nil, newExecutionError(ErrCodeValidation, validation.Message(), nil))
	}

	transformed, err := script.Transform(source, e.asyncNames)
	if err != nil {
		log.Error("script transform failed", "exec_id", execID, "error", err)
		return e.failed(started, nil, newExecutionError(ErrCodeTransform, err.Error(), nil))
	}

	hctx, cancel := context.WithCancel(ctx)
	defer cancel()
	inv, err := e.newInvocation(hctx)
	if err != nil {
		log.Error("runtime setup failed", "exec_id", execID, "error", err)
		return e.failed(started, nil,
			newExecutionError(ErrCodeExecution, "failed to prepare the runtime", err))
	}

	vmDone := make(chan struct{})
	var runErr error
	go func() {
		defer close(vmDone)
		runErr = inv.run(transformed)
	}()

	timer := time.NewTimer(e.config.Timeout)
	defer timer.Stop()

	select {
	case <-vmDone:
		close(inv.abandoned)
	case <-timer.C:
		// Soft timeout: the VM is interrupted and the invocation abandoned,
		// but in-flight capability calls run to completion in the background
		// with their results discarded.
		inv.vm.Interrupt("execution timeout")
		close(inv.abandoned)
		cancel()
		<-vmDone
		elapsed := time.Since(started)
		log.Debug("script timed out", "exec_id", execID, "elapsed", elapsed)
		return e.failed(started, inv.logs, newExecutionError(ErrCodeTimeout, fmt.Sprintf(
			"script timed out after %.1f seconds; reduce the scope of the script or split the work across invocations",
			elapsed.Seconds(),
		), nil))
	case <-ctx.Done():
		inv.vm.Interrupt("execution canceled")
		close(inv.abandoned)
		cancel()
		<-vmDone
		return e.failed(started, inv.logs,
			newExecutionError(ErrCodeCanceled, "execution canceled", ctx.Err()))
	}

	escaped := inv.escapedFailure()
	switch {
	case inv.fatal != "":
		return e.failed(started, inv.logs, newExecutionError(ErrCodeIterationLimit, inv.fatal, nil))
	case runErr != nil:
		return e.failed(started, inv.logs,
			newExecutionError(ErrCodeExecution, "script execution failed", runErr))
	case escaped != "":
		// An async failure that bypassed normal propagation wins over
		// whatever the race returned.
		return e.failed(started, inv.logs,
			newExecutionError(ErrCodeEscapedAsync, escaped, nil))
	case !inv.settled:
		return e.failed(started, inv.logs,
			newExecutionError(ErrCodeExecution, "script finished without producing a result", nil))
	case inv.failed:
		return e.failed(started, inv.logs, newExecutionError(ErrCodeExecution, inv.failure, nil))
	default:
		elapsed := time.Since(started).Round(time.Millisecond)
		log.Debug("script execution succeeded", "exec_id", execID, "elapsed", elapsed)
		logs := append(inv.logs, fmt.Sprintf("Execution completed in %s", elapsed))
		return successResult(exportValue(inv.value), logs)
	}
}

// failed finalizes an error result with the failure timing line appended.
// The message stays self-describing text; stage codes are internal.
func (e *Executor) failed(started time.Time, logs []string, err *ExecutionError) *Result {
	elapsed := time.Since(started).Round(time.Millisecond)
	logs = append(logs, fmt.Sprintf("Execution failed after %s", elapsed))
	return errorResult(err.Error(), logs)
}
