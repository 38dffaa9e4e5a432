package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/dop251/goja"

	"github.com/toolweave/toolweave/engine/core"
	"github.com/toolweave/toolweave/engine/script"
	"github.com/toolweave/toolweave/engine/tool"
)

// rejectionGraceWindow is how long the runtime keeps draining jobs after the
// program settles, so late async rejections can still reach the tracker.
const rejectionGraceWindow = 50 * time.Millisecond

// mapBootstrap installs the bounded parallel-map helper. It launches items
// while fewer than __mapLimit are in flight and returns results in input
// order regardless of completion order.
const mapBootstrap = `
function map(items, fn) {
	if (!Array.isArray(items)) {
		return Promise.reject("map: first argument must be an array");
	}
	if (typeof fn !== "function") {
		return Promise.reject("map: second argument must be a function");
	}
	const limit = Math.max(1, __mapLimit);
	const results = new Array(items.length);
	return new Promise((resolve, reject) => {
		if (items.length === 0) {
			resolve(results);
			return;
		}
		let next = 0;
		let active = 0;
		let failed = false;
		const launch = () => {
			while (!failed && active < limit && next < items.length) {
				const idx = next;
				next += 1;
				active += 1;
				Promise.resolve(fn(items[idx], idx)).then((value) => {
					results[idx] = value;
					active -= 1;
					if (next >= items.length && active === 0) {
						resolve(results);
					} else {
						launch();
					}
				}, (reason) => {
					failed = true;
					reject(reason);
				});
			}
		};
		launch();
	});
}
`

// invocation is the per-execution runtime state: one fresh VM, one job
// queue, one iteration counter, one escaped-error slot. All fields except
// jobs/abandoned are touched only on the VM goroutine; the orchestrator
// reads them after the VM goroutine exits.
type invocation struct {
	vm        *goja.Runtime
	cfg       *Config
	ctx       context.Context
	jobs      chan func()
	abandoned chan struct{}

	logs       []string
	iterations int
	fatal      string

	settled bool
	failed  bool
	failure string
	value   goja.Value

	rejected      map[*goja.Promise]goja.Value
	rejectedOrder []*goja.Promise
}

// newInvocation builds a fresh hardened runtime with the full capability
// environment bound in.
func (e *Executor) newInvocation(ctx context.Context) (*invocation, error) {
	vm := goja.New()
	vm.SetMaxCallStackSize(e.config.MaxCallStackSize)
	inv := &invocation{
		vm:        vm,
		cfg:       e.config,
		ctx:       ctx,
		jobs:      make(chan func(), 128),
		abandoned: make(chan struct{}),
		rejected:  make(map[*goja.Promise]goja.Value),
	}
	vm.SetPromiseRejectionTracker(func(p *goja.Promise, op goja.PromiseRejectionOperation) {
		switch op {
		case goja.PromiseRejectionReject:
			if _, known := inv.rejected[p]; !known {
				inv.rejectedOrder = append(inv.rejectedOrder, p)
			}
			inv.rejected[p] = p.Result()
		case goja.PromiseRejectionHandle:
			delete(inv.rejected, p)
		}
	})
	if err := e.bind(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// enqueue hands a closure to the VM goroutine. Abandoned invocations drop
// the closure so late capability results have no observable effect.
func (inv *invocation) enqueue(job func()) {
	select {
	case inv.jobs <- job:
	case <-inv.abandoned:
	}
}

// run executes the transformed program and pumps the job queue until the
// program settles, the invocation is abandoned, or the guard fires.
func (inv *invocation) run(src string) error {
	_, err := inv.vm.RunString(src)
	if err != nil {
		return err
	}
	inv.pump()
	return nil
}

func (inv *invocation) pump() {
	for !inv.settled && inv.fatal == "" {
		select {
		case job := <-inv.jobs:
			if !inv.runJob(job) {
				return
			}
		case <-inv.abandoned:
			return
		}
	}
	// Grace drain: late rejections must reach the tracker before the
	// escaped-error slot is read.
	grace := time.NewTimer(rejectionGraceWindow)
	defer grace.Stop()
	for {
		select {
		case job := <-inv.jobs:
			if !inv.runJob(job) {
				return
			}
		case <-grace.C:
			return
		case <-inv.abandoned:
			return
		}
	}
}

// runJob runs one queued closure, absorbing the interrupt unwind the guard
// triggers when the iteration budget is exhausted mid-continuation.
func (inv *invocation) runJob(job func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, interrupted := r.(*goja.InterruptedError); interrupted {
				ok = false
				return
			}
			panic(r)
		}
	}()
	job()
	return true
}

// escapedFailure returns the message of the first async rejection that never
// found a handler, or "" when every rejection was handled.
func (inv *invocation) escapedFailure() string {
	for _, p := range inv.rejectedOrder {
		if reason, still := inv.rejected[p]; still {
			return fmt.Sprintf("unhandled async error: %s", formatThrown(reason))
		}
	}
	return ""
}

// -----------------------------------------------------------------------------
// Bindings
// -----------------------------------------------------------------------------

// bind installs the guard, the settle pair, one wrapper per capability, the
// llm call, the standard library, and the parallel-map helper, then hardens
// the runtime.
func (e *Executor) bind(inv *invocation) error {
	vm := inv.vm

	vm.Set(script.GuardFuncName, func(goja.FunctionCall) goja.Value {
		inv.iterations++
		if inv.iterations > inv.cfg.MaxIterations {
			if inv.fatal == "" {
				inv.fatal = fmt.Sprintf(
					"script exceeded the maximum of %d loop iterations; use break or return to exit loops early, or reduce the workload",
					inv.cfg.MaxIterations,
				)
			}
			vm.Interrupt(inv.fatal)
		}
		return goja.Undefined()
	})
	vm.Set(script.ResolveFuncName, func(call goja.FunctionCall) goja.Value {
		if !inv.settled {
			inv.settled = true
			inv.value = call.Argument(0)
		}
		return goja.Undefined()
	})
	vm.Set(script.RejectFuncName, func(call goja.FunctionCall) goja.Value {
		if !inv.settled {
			inv.settled = true
			inv.failed = true
			inv.failure = formatThrown(call.Argument(0))
		}
		return goja.Undefined()
	})

	for _, def := range e.registry.Definitions() {
		vm.Set(def.ID, e.capabilityFunc(inv, def))
	}
	if e.llm != nil {
		vm.Set("llm", e.llmFunc(inv))
	}
	e.bindStdlib(inv)

	vm.Set("__mapLimit", e.config.Concurrency)
	if _, err := vm.RunString(mapBootstrap); err != nil {
		return fmt.Errorf("install parallel map helper: %w", err)
	}
	hardenRuntime(vm)
	return nil
}

// capabilityFunc wraps one host capability as a promise-returning script
// callable. The handler runs on its own goroutine; settlement happens on the
// VM goroutine through the job queue.
func (e *Executor) capabilityFunc(inv *invocation, def *tool.Definition) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := inv.vm.NewPromise()
		input := exportInput(call.Argument(0))
		go func() {
			value, err := runHandler(inv.ctx, def.Handler, input)
			if err != nil {
				msg := fmt.Sprintf("Error in %s: %s", def.ID, err)
				inv.enqueue(func() { reject(msg) })
				return
			}
			inv.enqueue(func() { resolve(value) })
		}()
		return inv.vm.ToValue(promise)
	}
}

// llmFunc wraps the text-generation call as llm(instruction, data).
func (e *Executor) llmFunc(inv *invocation) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := inv.vm.NewPromise()
		instruction := stringArg(call.Argument(0))
		var payload any
		if len(call.Arguments) > 1 {
			payload = call.Argument(1).Export()
		}
		llm := e.llm
		go func() {
			value, err := func() (value any, err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("panic: %v", r)
					}
				}()
				return llm(inv.ctx, instruction, payload)
			}()
			if err != nil {
				msg := fmt.Sprintf("Error in llm: %s", err)
				inv.enqueue(func() { reject(msg) })
				return
			}
			inv.enqueue(func() { resolve(value) })
		}()
		return inv.vm.ToValue(promise)
	}
}

func runHandler(ctx context.Context, handler tool.Handler, input core.Input) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, input)
}

func (e *Executor) bindStdlib(inv *invocation) {
	vm := inv.vm

	vm.Set("log", func(call goja.FunctionCall) goja.Value {
		inv.logs = append(inv.logs, formatLogValue(call.Argument(0)))
		return goja.Undefined()
	})
	vm.Set("chunk", func(call goja.FunctionCall) goja.Value {
		size := 0
		if len(call.Arguments) > 1 {
			size = int(call.Argument(1).ToInteger())
		}
		return vm.ToValue(e.chunker.Chunk(stringArg(call.Argument(0)), size))
	})
	vm.Set("batch", func(call goja.FunctionCall) goja.Value {
		size := 0
		if len(call.Arguments) > 1 {
			size = int(call.Argument(1).ToInteger())
		}
		return vm.ToValue(batchSlice(sliceArg(vm, "batch", call.Argument(0)), size))
	})
	vm.Set("range", func(call goja.FunctionCall) goja.Value {
		start := call.Argument(0).ToInteger()
		var end int64
		if len(call.Arguments) > 1 {
			end = call.Argument(1).ToInteger()
		} else {
			start, end = 0, start
		}
		return vm.ToValue(rangeInts(start, end))
	})
	vm.Set("flatten", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(flattenSlice(sliceArg(vm, "flatten", call.Argument(0))))
	})
	vm.Set("unique", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(uniqueSlice(sliceArg(vm, "unique", call.Argument(0))))
	})
	vm.Set("groupBy", func(call goja.FunctionCall) goja.Value {
		items := sliceArg(vm, "groupBy", call.Argument(0))
		if fn, isFn := goja.AssertFunction(call.Argument(1)); isFn {
			groups := make(map[string][]any)
			for _, item := range items {
				keyVal, err := fn(goja.Undefined(), vm.ToValue(item))
				if err != nil {
					panic(vm.ToValue(fmt.Sprintf("groupBy: %s", err)))
				}
				key := keyVal.String()
				groups[key] = append(groups[key], item)
			}
			return vm.ToValue(groups)
		}
		return vm.ToValue(groupByKey(items, stringArg(call.Argument(1))))
	})
	vm.Set("parseJSON", func(call goja.FunctionCall) goja.Value {
		parsed := parseLooseJSON(stringArg(call.Argument(0)))
		if parsed == nil {
			return goja.Null()
		}
		return vm.ToValue(parsed)
	})
	vm.Set("output", func(call goja.FunctionCall) goja.Value {
		arg := call.Argument(0)
		if goja.IsUndefined(arg) || goja.IsNull(arg) {
			return goja.Undefined()
		}
		e.output.Append(arg.Export())
		return goja.Undefined()
	})

	store := vm.NewObject()
	store.Set("get", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(e.store.Get(stringArg(call.Argument(0))))
	})
	store.Set("set", func(call goja.FunctionCall) goja.Value {
		e.store.Set(stringArg(call.Argument(0)), call.Argument(1).Export())
		return goja.Undefined()
	})
	store.Set("append", func(call goja.FunctionCall) goja.Value {
		e.store.Append(stringArg(call.Argument(0)), call.Argument(1).Export())
		return goja.Undefined()
	})
	store.Set("keys", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(e.store.Keys())
	})
	store.Set("getAll", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(e.store.GetAll())
	})
	vm.Set("store", store)
}

// hardenRuntime neutralizes the dynamic-evaluation surface. The validator
// already rejects these names, but the runtime executes transformed text, so
// the defense is kept on both layers.
func hardenRuntime(vm *goja.Runtime) {
	vm.Set("eval", goja.Undefined())
	vm.Set("Function", goja.Undefined())
	vm.Set("globalThis", goja.Undefined())
}

// -----------------------------------------------------------------------------
// Value conversion
// -----------------------------------------------------------------------------

func exportInput(v goja.Value) core.Input {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return core.Input{}
	}
	exported := v.Export()
	if m, ok := exported.(map[string]any); ok {
		return core.Input(m)
	}
	// Scalar arguments arrive under "value" so handlers always receive one
	// parameter object.
	return core.Input{"value": exported}
}

func stringArg(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

// sliceArg exports an array argument, throwing a readable script error for
// anything else. Host-produced arrays export as typed Go slices rather than
// []any, so those go through reflection.
func sliceArg(vm *goja.Runtime, fn string, v goja.Value) []any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	exported := v.Export()
	if items, ok := exported.([]any); ok {
		return items
	}
	rv := reflect.ValueOf(exported)
	if rv.Kind() == reflect.Slice {
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items
	}
	panic(vm.ToValue(fmt.Sprintf("%s: expected an array, got %s", fn, v)))
}

func formatThrown(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "script failed"
	}
	return v.String()
}

func formatLogValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	exported := v.Export()
	if s, ok := exported.(string); ok {
		return s
	}
	if data, err := json.Marshal(exported); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", exported)
}

func exportValue(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) {
		return nil
	}
	return v.Export()
}
