package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asyncSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func TestTransform(t *testing.T) {
	t.Run("Should wrap the program in a single awaited unit", func(t *testing.T) {
		out, err := Transform("return 1;", nil)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "(async () => {"))
		assert.True(t, strings.HasSuffix(out, "})().then(__ok, __err);"))
		assert.Contains(t, out, "return 1;")
	})
	t.Run("Should await bare calls to asynchronous capabilities", func(t *testing.T) {
		out, err := Transform("const r = searchText({ q: q });", asyncSet("searchText"))
		require.NoError(t, err)
		assert.Contains(t, out, "const r = await searchText({ q: q });")
	})
	t.Run("Should leave synchronous calls untouched", func(t *testing.T) {
		out, err := Transform("const r = flatten(xs);", asyncSet("searchText"))
		require.NoError(t, err)
		assert.Contains(t, out, "const r = flatten(xs);")
		assert.NotContains(t, out, "await flatten")
	})
	t.Run("Should not await member calls that shadow a capability name", func(t *testing.T) {
		out, err := Transform("const r = helper.searchText(q);", asyncSet("searchText"))
		require.NoError(t, err)
		assert.NotContains(t, out, "await")
	})
	t.Run("Should mark the enclosing function literal async", func(t *testing.T) {
		out, err := Transform("const f = (x) => { return double(x); };", asyncSet("double"))
		require.NoError(t, err)
		assert.Contains(t, out, "async (x) => { return await double(x); }")
	})
	t.Run("Should mark expression-bodied arrows async", func(t *testing.T) {
		out, err := Transform("const ys = map(xs, (x) => double(x));", asyncSet("double"))
		require.NoError(t, err)
		assert.Contains(t, out, "await map(xs, async (x) => await double(x))")
	})
	t.Run("Should always await the parallel map helper", func(t *testing.T) {
		out, err := Transform("const ys = map(xs, (x) => x + 1);", asyncSet())
		require.NoError(t, err)
		assert.Contains(t, out, "await map(xs, (x) => x + 1)")
	})
	t.Run("Should guard every loop form", func(t *testing.T) {
		out, err := Transform(`
for (let i = 0; i < 3; i++) { work(i); }
for (const x of xs) { use(x); }
while (busy) { poll(); }
do { poll(); } while (busy);
`, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, strings.Count(out, "__checkIteration();"))
		assert.Contains(t, out, "{ __checkIteration(); work(i); }")
		assert.Contains(t, out, "{ __checkIteration(); use(x); }")
	})
	t.Run("Should guard an empty loop body", func(t *testing.T) {
		out, err := Transform("while (true) { }", nil)
		require.NoError(t, err)
		assert.Contains(t, out, "while (true) { __checkIteration(); }")
	})
	t.Run("Should wrap a braceless loop body in a guarded block", func(t *testing.T) {
		out, err := Transform("while (busy) poll();", nil)
		require.NoError(t, err)
		assert.Contains(t, out, "while (busy) { __checkIteration(); poll() };")
	})
	t.Run("Should guard nested loops independently", func(t *testing.T) {
		out, err := Transform("for (const a of xs) { for (const b of ys) { pair(a, b); } }", nil)
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(out, "__checkIteration();"))
	})
	t.Run("Should await capability calls inside a guarded loop body", func(t *testing.T) {
		out, err := Transform("while (busy) poll();", asyncSet("poll"))
		require.NoError(t, err)
		assert.Contains(t, out, "while (busy) { __checkIteration(); await poll() };")
	})
	t.Run("Should await calls inside template interpolations", func(t *testing.T) {
		out, err := Transform("const s = `got ${fetchData(q)}`;", asyncSet("fetchData"))
		require.NoError(t, err)
		assert.Contains(t, out, "${await fetchData(q)}")
	})
	t.Run("Should not touch throw and catch sites", func(t *testing.T) {
		src := `try { risky(); } catch (e) { return e; }`
		out, err := Transform(src, nil)
		require.NoError(t, err)
		assert.Contains(t, out, src)
	})
	t.Run("Should be stable across repeated application to the same input", func(t *testing.T) {
		src := "const ys = map(xs, (x) => double(x)); return ys;"
		first, err := Transform(src, asyncSet("double"))
		require.NoError(t, err)
		second, err := Transform(src, asyncSet("double"))
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
	t.Run("Should fail only on unparsable input", func(t *testing.T) {
		_, err := Transform("let = ;", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reparse")
	})
}
