package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustNewID(t *testing.T) {
	t.Run("Should return unique non-empty IDs", func(t *testing.T) {
		a := MustNewID()
		b := MustNewID()
		require.NotEmpty(t, a.String())
		assert.NotEqual(t, a, b)
	})
}

func TestInputCopy(t *testing.T) {
	t.Run("Should copy without aliasing the original map", func(t *testing.T) {
		in := Input{"query": "foo"}
		cp := in.Copy()
		cp["query"] = "bar"
		assert.Equal(t, "foo", in["query"])
	})

	t.Run("Should return nil for nil input", func(t *testing.T) {
		var in Input
		assert.Nil(t, in.Copy())
	})
}

func TestError(t *testing.T) {
	t.Run("Should include code in message when set", func(t *testing.T) {
		e := NewError(errors.New("boom"), "CAPABILITY_ERROR", nil)
		assert.Equal(t, "CAPABILITY_ERROR: boom", e.Error())
	})

	t.Run("Should return nil for nil source error", func(t *testing.T) {
		assert.Nil(t, NewError(nil, "X", nil))
	})
}
