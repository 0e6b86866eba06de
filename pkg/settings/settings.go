package settings

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
)

// Settings is the generic key-value configuration read by the drivers. Keys are
// case-insensitive and use dots for nesting, e.g. "nosql.host.1".
type Settings struct {
	mu     sync.RWMutex
	values map[string]interface{}

	// Define which keys require a reconnect when changed
	restartKeys []string
}

// New creates an empty Settings.
func New() *Settings {
	return &Settings{
		values: make(map[string]interface{}),
		restartKeys: []string{
			"nosql.provider",
			"nosql.host",
			"nosql.hosts",
			"nosql.port",
			"nosql.database",
		},
	}
}

// FromMap creates Settings holding the given values; nested maps are flattened.
func FromMap(values map[string]interface{}) *Settings {
	s := New()
	s.Update(values)
	return s
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get retrieves a value.
func (s *Settings) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[normalize(key)]
	return v, ok
}

// Has reports whether key is set.
func (s *Settings) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// GetString returns the value as a string, or "" when missing.
func (s *Settings) GetString(key string) string {
	v, _ := s.Get(key)
	return cast.ToString(v)
}

// GetStringOr returns the value as a string, or def when missing or empty.
func (s *Settings) GetStringOr(key, def string) string {
	if v := s.GetString(key); v != "" {
		return v
	}
	return def
}

// GetInt returns the value as an int, or 0 when missing or not numeric.
func (s *Settings) GetInt(key string) int {
	v, _ := s.Get(key)
	return cast.ToInt(v)
}

// GetIntOr returns the value as an int, or def when missing.
func (s *Settings) GetIntOr(key string, def int) int {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return i
}

// GetBool returns the value as a bool, or false when missing.
func (s *Settings) GetBool(key string) bool {
	v, _ := s.Get(key)
	return cast.ToBool(v)
}

// GetDuration returns the value as a duration. Plain numbers are read as seconds.
func (s *Settings) GetDuration(key string) time.Duration {
	v, ok := s.Get(key)
	if !ok {
		return 0
	}
	switch v.(type) {
	case int, int32, int64, float64:
		return time.Duration(cast.ToFloat64(v) * float64(time.Second))
	}
	return cast.ToDuration(v)
}

// GetStrings returns the value as a list. Comma-separated strings are split.
func (s *Settings) GetStrings(key string) []string {
	v, ok := s.Get(key)
	if !ok {
		return nil
	}
	if str, isString := v.(string); isString {
		var out []string
		for _, part := range strings.Split(str, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return cast.ToStringSlice(v)
}

// Prefixed returns the values of every key starting with prefix, ordered by key, so
// host.1, host.2 style lists can be read in order.
func (s *Settings) Prefixed(prefix string) []string {
	prefix = normalize(prefix)
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, cast.ToString(s.values[k]))
	}
	return out
}

// Sub returns the keys under prefix with the prefix stripped.
func (s *Settings) Sub(prefix string) *Settings {
	prefix = normalize(prefix)
	if !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}
	sub := New()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.values {
		if strings.HasPrefix(k, prefix) {
			sub.values[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return sub
}

// Keys returns all keys in lexical order.
func (s *Settings) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetAll returns a copy of all values
func (s *Settings) GetAll() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Set sets a single value.
func (s *Settings) Set(key string, value interface{}) {
	s.Update(map[string]interface{}{key: value})
}

// Update merges values; nested maps are flattened with dots.
func (s *Settings) Update(values map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flatten("", values, s.values)
}

func flatten(prefix string, in map[string]interface{}, out map[string]interface{}) {
	for k, v := range in {
		key := normalize(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		switch nested := v.(type) {
		case map[string]interface{}:
			flatten(key, nested, out)
		case map[interface{}]interface{}:
			flatten(key, cast.ToStringMap(nested), out)
		default:
			out[key] = v
		}
	}
}

// RequiresRestart checks if any changed keys require a reconnect
func (s *Settings) RequiresRestart(old map[string]interface{}) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range s.restartKeys {
		if cast.ToString(old[key]) != cast.ToString(s.values[key]) {
			return true
		}
	}
	return false
}

// SetRestartKeys sets which keys require a reconnect when changed
func (s *Settings) SetRestartKeys(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restartKeys = keys
}
