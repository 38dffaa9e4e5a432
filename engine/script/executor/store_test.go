package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionStore(t *testing.T) {
	t.Run("Should get and set values", func(t *testing.T) {
		store := NewSessionStore()
		assert.Nil(t, store.Get("missing"))
		store.Set("k", 1)
		assert.Equal(t, 1, store.Get("k"))
		store.Set("k", 2)
		assert.Equal(t, 2, store.Get("k"))
	})
	t.Run("Should append into a growing slice", func(t *testing.T) {
		store := NewSessionStore()
		store.Append("items", "a")
		store.Append("items", "b")
		assert.Equal(t, []any{"a", "b"}, store.Get("items"))
	})
	t.Run("Should fold an existing scalar into the appended slice", func(t *testing.T) {
		store := NewSessionStore()
		store.Set("items", "first")
		store.Append("items", "second")
		assert.Equal(t, []any{"first", "second"}, store.Get("items"))
	})
	t.Run("Should list keys in lexical order", func(t *testing.T) {
		store := NewSessionStore()
		store.Set("zeta", 1)
		store.Set("alpha", 2)
		assert.Equal(t, []string{"alpha", "zeta"}, store.Keys())
		assert.Equal(t, 2, store.Len())
	})
	t.Run("Should dump a copy of the full contents", func(t *testing.T) {
		store := NewSessionStore()
		store.Set("k", 1)
		all := store.GetAll()
		all["k"] = 99
		assert.Equal(t, 1, store.Get("k"))
	})
}

func TestOutputBuffer(t *testing.T) {
	t.Run("Should append entries in order", func(t *testing.T) {
		buf := NewOutputBuffer()
		buf.Append("a")
		buf.Append(2)
		assert.Equal(t, []any{"a", 2}, buf.Entries())
		assert.Equal(t, 2, buf.Len())
	})
	t.Run("Should return a copy of the entries", func(t *testing.T) {
		buf := NewOutputBuffer()
		buf.Append("a")
		entries := buf.Entries()
		entries[0] = "mutated"
		assert.Equal(t, []any{"a"}, buf.Entries())
	})
}
