package executor

import "sort"

// SessionStore is mutable state shared by every invocation within one
// logical session. It has no internal locking: the calling agent must
// serialize invocations of the same session.
type SessionStore struct {
	values map[string]any
}

func NewSessionStore() *SessionStore {
	return &SessionStore{values: make(map[string]any)}
}

// Get returns the stored value for key, or nil.
func (s *SessionStore) Get(key string) any {
	return s.values[key]
}

// Set stores value under key, replacing any earlier value.
func (s *SessionStore) Set(key string, value any) {
	s.values[key] = value
}

// Append adds value to the slice stored under key, creating it if absent.
// A non-slice existing value becomes the first element.
func (s *SessionStore) Append(key string, value any) {
	switch existing := s.values[key].(type) {
	case nil:
		s.values[key] = []any{value}
	case []any:
		s.values[key] = append(existing, value)
	default:
		s.values[key] = []any{existing, value}
	}
}

// Keys returns the stored keys in lexical order.
func (s *SessionStore) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetAll returns a copy of the full store contents.
func (s *SessionStore) GetAll() map[string]any {
	all := make(map[string]any, len(s.values))
	for k, v := range s.values {
		all[k] = v
	}
	return all
}

// Len returns the number of stored keys.
func (s *SessionStore) Len() int {
	return len(s.values)
}

// OutputBuffer collects values a script passes straight through to the
// caller, bypassing any downstream summarization. Appended entries persist
// across invocations; same locking contract as SessionStore.
type OutputBuffer struct {
	entries []any
}

func NewOutputBuffer() *OutputBuffer {
	return &OutputBuffer{}
}

// Append adds one entry.
func (b *OutputBuffer) Append(value any) {
	b.entries = append(b.entries, value)
}

// Entries returns a copy of the buffered entries in append order.
func (b *OutputBuffer) Entries() []any {
	out := make([]any, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of buffered entries.
func (b *OutputBuffer) Len() int {
	return len(b.entries)
}
