package executor

import (
	"github.com/pkoukk/tiktoken-go"
)

const (
	chunkEncoding      = "cl100k_base"
	defaultChunkTokens = 1000
	// runesPerToken is the rough ratio used when the encoding cannot be
	// loaded (offline environments without the BPE files).
	runesPerToken = 4
)

// tokenChunker splits text into pieces of roughly a given token count.
type tokenChunker struct {
	enc *tiktoken.Tiktoken
}

func newTokenChunker() *tokenChunker {
	enc, err := tiktoken.GetEncoding(chunkEncoding)
	if err != nil {
		return &tokenChunker{}
	}
	return &tokenChunker{enc: enc}
}

// Chunk splits text into segments of at most size tokens each.
func (c *tokenChunker) Chunk(text string, size int) []string {
	if size <= 0 {
		size = defaultChunkTokens
	}
	if text == "" {
		return nil
	}
	if c.enc == nil {
		return c.chunkByRunes(text, size)
	}
	tokens := c.enc.Encode(text, nil, nil)
	if len(tokens) <= size {
		return []string{text}
	}
	chunks := make([]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, c.enc.Decode(tokens[start:end]))
	}
	return chunks
}

func (c *tokenChunker) chunkByRunes(text string, size int) []string {
	limit := size * runesPerToken
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	chunks := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
