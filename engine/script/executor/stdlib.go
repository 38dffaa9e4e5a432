package executor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const defaultBatchSize = 10

// batchSlice splits items into fixed-size groups, the last possibly shorter.
func batchSlice(items []any, size int) [][]any {
	if size <= 0 {
		size = defaultBatchSize
	}
	batches := make([][]any, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}

// rangeInts returns the integers in [start, end).
func rangeInts(start, end int64) []int64 {
	if end <= start {
		return []int64{}
	}
	out := make([]int64, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}

// flattenSlice flattens one level of nesting.
func flattenSlice(items []any) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		if nested, ok := item.([]any); ok {
			out = append(out, nested...)
			continue
		}
		out = append(out, item)
	}
	return out
}

// uniqueSlice removes duplicates, keeping the first occurrence. Equality is
// structural: values serialize to the same JSON.
func uniqueSlice(items []any) []any {
	seen := make(map[string]struct{}, len(items))
	out := make([]any, 0, len(items))
	for _, item := range items {
		key := valueKey(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// groupByKey groups object items by the value of one of their fields.
// Non-object items and missing fields group under "undefined".
func groupByKey(items []any, key string) map[string][]any {
	groups := make(map[string][]any)
	for _, item := range items {
		k := itemGroupKey(item, key)
		groups[k] = append(groups[k], item)
	}
	return groups
}

func itemGroupKey(item any, key string) string {
	obj, ok := item.(map[string]any)
	if !ok {
		return "undefined"
	}
	value, ok := obj[key]
	if !ok || value == nil {
		return "undefined"
	}
	if s, isString := value.(string); isString {
		return s
	}
	return fmt.Sprintf("%v", value)
}

// valueKey returns a structural identity for a value.
func valueKey(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return string(data)
}

// parseLooseJSON extracts the first JSON value from noisy text: markdown
// fences are stripped, and leading/trailing prose around a JSON object or
// array is tolerated. Returns nil when no valid JSON can be found.
func parseLooseJSON(text string) any {
	cleaned := stripFences(text)
	if cleaned == "" {
		return nil
	}
	if gjson.Valid(cleaned) {
		return gjson.Parse(cleaned).Value()
	}
	start := strings.IndexAny(cleaned, "{[")
	if start < 0 {
		return nil
	}
	for end := len(cleaned); end > start; end-- {
		candidate := strings.TrimSpace(cleaned[start:end])
		if gjson.Valid(candidate) {
			return gjson.Parse(candidate).Value()
		}
	}
	return nil
}

func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	} else {
		// Single-line fence like ```json {"a":1} ```
		body = strings.TrimPrefix(body, "json")
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}
