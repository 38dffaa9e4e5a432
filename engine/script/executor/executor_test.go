package executor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolweave/toolweave/engine/core"
	"github.com/toolweave/toolweave/engine/tool"
)

func numberArg(input core.Input) int64 {
	switch v := input["value"].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func newTestExecutor(t *testing.T, defs []*tool.Definition, opts ...Option) *Executor {
	t.Helper()
	reg := tool.NewRegistry()
	for _, def := range defs {
		require.NoError(t, reg.Register(def))
	}
	exec, err := New(reg, append([]Option{WithTestConfig()}, opts...)...)
	require.NoError(t, err)
	return exec
}

func TestNew(t *testing.T) {
	t.Run("Should apply defaults when no options given", func(t *testing.T) {
		exec, err := New(nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().Concurrency, exec.config.Concurrency)
		assert.Equal(t, DefaultConfig().Timeout, exec.config.Timeout)
	})
	t.Run("Should reject invalid budgets", func(t *testing.T) {
		_, err := New(nil, WithConcurrency(-1))
		require.Error(t, err)
	})
	t.Run("Should reject tools that shadow built-ins", func(t *testing.T) {
		reg := tool.NewRegistry()
		require.NoError(t, reg.Register(&tool.Definition{
			ID:      "map",
			Handler: func(_ context.Context, _ core.Input) (any, error) { return nil, nil },
		}))
		_, err := New(reg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "built-in")
	})
	t.Run("Should treat every capability plus llm as asynchronous", func(t *testing.T) {
		exec := newTestExecutor(t, []*tool.Definition{
			{ID: "double", Handler: func(_ context.Context, in core.Input) (any, error) {
				return numberArg(in) * 2, nil
			}},
		}, WithLLM(func(_ context.Context, _ string, _ any) (any, error) { return "ok", nil }))
		names := exec.AsyncNames()
		assert.Contains(t, names, "double")
		assert.Contains(t, names, "llm")
		assert.NotContains(t, names, "flatten")
	})
}

func TestExecutor_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("Should run a synchronous script and return its value", func(t *testing.T) {
		exec := newTestExecutor(t, nil)
		res := exec.Execute(ctx, "const a = 2; const b = 3; return a * b;", "")
		require.Equal(t, core.StatusSuccess, res.Status)
		assert.Equal(t, int64(6), res.Result)
		assert.Empty(t, res.Error)
		require.NotEmpty(t, res.Logs)
		assert.Contains(t, res.Logs[len(res.Logs)-1], "Execution completed")
	})
	t.Run("Should await capability calls transparently", func(t *testing.T) {
		exec := newTestExecutor(t, []*tool.Definition{
			{ID: "double", Handler: func(_ context.Context, in core.Input) (any, error) {
				return numberArg(in) * 2, nil
			}},
		})
		res := exec.Execute(ctx, "const r = double(21); return r;", "")
		require.Equal(t, core.StatusSuccess, res.Status, "error: %s", res.Error)
		assert.Equal(t, int64(42), res.Result)
	})
	t.Run("Should map in parallel preserving input order within the concurrency bound", func(t *testing.T) {
		var mu sync.Mutex
		active, peak := 0, 0
		exec := newTestExecutor(t, []*tool.Definition{
			{ID: "double", Handler: func(_ context.Context, in core.Input) (any, error) {
				mu.Lock()
				active++
				if active > peak {
					peak = active
				}
				mu.Unlock()
				time.Sleep(20 * time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return numberArg(in) * 2, nil
			}},
		}, WithConcurrency(2))
		res := exec.Execute(ctx,
			"const xs = [1, 2, 3]; const ys = map(xs, (x) => double(x)); return ys;", "")
		require.Equal(t, core.StatusSuccess, res.Status, "error: %s", res.Error)
		assert.Equal(t, []any{int64(2), int64(4), int64(6)}, res.Result)
		mu.Lock()
		defer mu.Unlock()
		assert.LessOrEqual(t, peak, 2)
		assert.GreaterOrEqual(t, peak, 1)
	})
	t.Run("Should stop a runaway loop at the iteration cap", func(t *testing.T) {
		exec := newTestExecutor(t, nil, WithMaxIterations(50))
		res := exec.Execute(ctx, "while (true) { }", "")
		require.Equal(t, core.StatusError, res.Status)
		assert.Contains(t, res.Error, "50")
		assert.Contains(t, res.Error, "iteration")
	})
	t.Run("Should time out and keep the logs written before the deadline", func(t *testing.T) {
		exec := newTestExecutor(t, []*tool.Definition{
			{ID: "slow", Handler: func(_ context.Context, _ core.Input) (any, error) {
				time.Sleep(2 * time.Second)
				return "late", nil
			}},
		}, WithTimeout(150*time.Millisecond))
		res := exec.Execute(ctx, `log("starting"); const r = slow({}); return r;`, "")
		require.Equal(t, core.StatusError, res.Status)
		assert.Contains(t, res.Error, "seconds")
		assert.Contains(t, res.Logs, "starting")
	})
	t.Run("Should return exactly the thrown value from a catch", func(t *testing.T) {
		exec := newTestExecutor(t, nil)
		res := exec.Execute(ctx, `
try { throw "warm-up"; } catch (e) { log(e); }
try { throw "boom"; } catch (e) { return e; }
`, "")
		require.Equal(t, core.StatusSuccess, res.Status, "error: %s", res.Error)
		assert.Equal(t, "boom", res.Result)
		assert.Contains(t, res.Logs, "warm-up")
	})
	t.Run("Should normalize capability failures into catchable strings", func(t *testing.T) {
		exec := newTestExecutor(t, []*tool.Definition{
			{ID: "failing", Handler: func(_ context.Context, _ core.Input) (any, error) {
				return nil, fmt.Errorf("backend unavailable")
			}},
		})
		res := exec.Execute(ctx,
			"try { const r = failing({}); return r; } catch (e) { return e; }", "")
		require.Equal(t, core.StatusSuccess, res.Status, "error: %s", res.Error)
		assert.Equal(t, "Error in failing: backend unavailable", res.Result)
	})
	t.Run("Should fail with the capability error when uncaught", func(t *testing.T) {
		exec := newTestExecutor(t, []*tool.Definition{
			{ID: "failing", Handler: func(_ context.Context, _ core.Input) (any, error) {
				return nil, fmt.Errorf("backend unavailable")
			}},
		})
		res := exec.Execute(ctx, "const r = failing({}); return r;", "")
		require.Equal(t, core.StatusError, res.Status)
		assert.Contains(t, res.Error, "Error in failing: backend unavailable")
	})
	t.Run("Should capture an async failure that escapes the await chain", func(t *testing.T) {
		exec := newTestExecutor(t, []*tool.Definition{
			{ID: "boom", Handler: func(_ context.Context, _ core.Input) (any, error) {
				return nil, fmt.Errorf("lost")
			}},
		})
		// Calling through an alias dodges the inserted await, so the
		// rejection never finds a handler.
		res := exec.Execute(ctx, `const f = boom; f({}); return "done";`, "")
		require.Equal(t, core.StatusError, res.Status)
		assert.Contains(t, res.Error, "unhandled async error")
		assert.Contains(t, res.Error, "Error in boom: lost")
	})
	t.Run("Should reject invalid scripts without executing", func(t *testing.T) {
		calls := 0
		exec := newTestExecutor(t, []*tool.Definition{
			{ID: "probeTool", Handler: func(_ context.Context, _ core.Input) (any, error) {
				calls++
				return nil, nil
			}},
		})
		res := exec.Execute(ctx, "class X { }\nprobeTool({});", "")
		require.Equal(t, core.StatusError, res.Status)
		assert.Contains(t, res.Error, "ClassDeclaration")
		assert.Zero(t, calls)
		require.NotEmpty(t, res.Logs)
		assert.Contains(t, res.Logs[len(res.Logs)-1], "Execution failed")
	})
	t.Run("Should expose the llm capability", func(t *testing.T) {
		exec := newTestExecutor(t, nil, WithLLM(
			func(_ context.Context, instruction string, payload any) (any, error) {
				return fmt.Sprintf("%s:%v", instruction, payload), nil
			}))
		res := exec.Execute(ctx, `const s = llm("summarize", "data"); return s;`, "")
		require.Equal(t, core.StatusSuccess, res.Status, "error: %s", res.Error)
		assert.Equal(t, "summarize:data", res.Result)
	})
	t.Run("Should run the standard library helpers", func(t *testing.T) {
		exec := newTestExecutor(t, nil)
		res := exec.Execute(ctx, `
const r = range(1, 4);
const f = flatten([[1], [2, 3], 4]);
const u = unique([1, 1, 2, 2, 3]);
const b = batch([1, 2, 3, 4, 5], 2);
return { r: r, f: f, u: u, batches: b.length };
`, "")
		require.Equal(t, core.StatusSuccess, res.Status, "error: %s", res.Error)
		out, ok := res.Result.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, []int64{1, 2, 3}, out["r"])
		assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4)}, out["f"])
		assert.Equal(t, []any{int64(1), int64(2), int64(3)}, out["u"])
		assert.Equal(t, int64(3), out["batches"])
	})
	t.Run("Should group by field and by callback", func(t *testing.T) {
		exec := newTestExecutor(t, nil)
		res := exec.Execute(ctx, `
const items = [{ kind: "a", n: 1 }, { kind: "b", n: 2 }, { kind: "a", n: 3 }];
const byField = groupBy(items, "kind");
const byFn = groupBy(items, (item) => item.kind);
return { field: byField.a.length, fn: byFn.b.length };
`, "")
		require.Equal(t, core.StatusSuccess, res.Status, "error: %s", res.Error)
		out := res.Result.(map[string]any)
		assert.Equal(t, int64(2), out["field"])
		assert.Equal(t, int64(1), out["fn"])
	})
	t.Run("Should parse JSON out of fenced model output", func(t *testing.T) {
		exec := newTestExecutor(t, nil)
		res := exec.Execute(ctx,
			"const v = parseJSON('```json\\n{\"count\": 3}\\n```'); return v.count;", "")
		require.Equal(t, core.StatusSuccess, res.Status, "error: %s", res.Error)
		assert.EqualValues(t, 3, res.Result)
	})
	t.Run("Should append only real values to the output buffer", func(t *testing.T) {
		exec := newTestExecutor(t, nil)
		res := exec.Execute(ctx, `output(null); output(undefined); output("x"); return true;`, "")
		require.Equal(t, core.StatusSuccess, res.Status, "error: %s", res.Error)
		assert.Equal(t, []any{"x"}, exec.Output().Entries())

		res = exec.Execute(ctx, `output("y"); return true;`, "")
		require.Equal(t, core.StatusSuccess, res.Status)
		assert.Equal(t, []any{"x", "y"}, exec.Output().Entries())
	})
	t.Run("Should persist the session store across invocations", func(t *testing.T) {
		exec := newTestExecutor(t, nil)
		res := exec.Execute(ctx, `store.set("total", 41); store.append("seen", "a"); return true;`, "")
		require.Equal(t, core.StatusSuccess, res.Status, "error: %s", res.Error)

		res = exec.Execute(ctx, `return { total: store.get("total"), keys: store.keys() };`, "")
		require.Equal(t, core.StatusSuccess, res.Status, "error: %s", res.Error)
		out := res.Result.(map[string]any)
		assert.EqualValues(t, 41, out["total"])
		assert.Equal(t, []string{"seen", "total"}, out["keys"])
	})
	t.Run("Should be idempotent modulo the timing line", func(t *testing.T) {
		exec := newTestExecutor(t, []*tool.Definition{
			{ID: "double", Handler: func(_ context.Context, in core.Input) (any, error) {
				return numberArg(in) * 2, nil
			}},
		})
		src := `log("run"); const ys = map([1, 2], (x) => double(x)); return ys;`
		first := exec.Execute(ctx, src, "")
		second := exec.Execute(ctx, src, "")
		require.Equal(t, core.StatusSuccess, first.Status, "error: %s", first.Error)
		require.Equal(t, core.StatusSuccess, second.Status, "error: %s", second.Error)
		assert.Equal(t, first.Result, second.Result)
		assert.Equal(t, first.Logs[:len(first.Logs)-1], second.Logs[:len(second.Logs)-1])
	})
	t.Run("Should stop when the caller context is canceled", func(t *testing.T) {
		exec := newTestExecutor(t, []*tool.Definition{
			{ID: "slow", Handler: func(hctx context.Context, _ core.Input) (any, error) {
				select {
				case <-time.After(5 * time.Second):
				case <-hctx.Done():
				}
				return nil, hctx.Err()
			}},
		})
		cctx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()
		res := exec.Execute(cctx, "const r = slow({}); return r;", "")
		require.Equal(t, core.StatusError, res.Status)
		assert.Contains(t, res.Error, "canceled")
	})
}
