package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	t.Run("Should carry the production budgets", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, 3, cfg.Concurrency)
		assert.Equal(t, 2*time.Minute, cfg.Timeout)
		assert.Equal(t, 5000, cfg.MaxIterations)
		require.NoError(t, cfg.Validate())
	})
	t.Run("Should validate the test budgets", func(t *testing.T) {
		require.NoError(t, TestConfig().Validate())
	})
	t.Run("Should fill only unset fields from defaults", func(t *testing.T) {
		cfg := &Config{Concurrency: 8}
		require.NoError(t, cfg.applyDefaults())
		assert.Equal(t, 8, cfg.Concurrency)
		assert.Equal(t, DefaultConfig().Timeout, cfg.Timeout)
	})
	t.Run("Should reject out-of-range budgets", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Concurrency = 100
		assert.Error(t, cfg.Validate())

		cfg = DefaultConfig()
		cfg.MaxIterations = 0
		assert.Error(t, cfg.Validate())

		cfg = DefaultConfig()
		cfg.MaxCallStackSize = 1
		assert.Error(t, cfg.Validate())
	})
}

func TestTokenChunker(t *testing.T) {
	t.Run("Should return nil for empty text", func(t *testing.T) {
		c := newTokenChunker()
		assert.Nil(t, c.Chunk("", 100))
	})
	t.Run("Should keep short text in one chunk", func(t *testing.T) {
		c := newTokenChunker()
		chunks := c.Chunk("short text", 100)
		require.Len(t, chunks, 1)
		assert.Equal(t, "short text", chunks[0])
	})
	t.Run("Should split long text and preserve the content", func(t *testing.T) {
		c := newTokenChunker()
		long := ""
		for i := 0; i < 500; i++ {
			long += "word "
		}
		chunks := c.Chunk(long, 20)
		assert.Greater(t, len(chunks), 1)
		joined := ""
		for _, chunk := range chunks {
			joined += chunk
		}
		assert.Equal(t, long, joined)
	})
	t.Run("Should estimate by runes when no encoding is loaded", func(t *testing.T) {
		c := &tokenChunker{}
		chunks := c.Chunk("abcdefgh", 1)
		require.Len(t, chunks, 2)
		assert.Equal(t, "abcd", chunks[0])
		assert.Equal(t, "efgh", chunks[1])
	})
}
