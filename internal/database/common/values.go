package common

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redbco/redb-nosql/pkg/communication"
)

// NewID returns a random document key.
func NewID() string {
	return uuid.New().String()
}

// EnsureKey returns the entity's key element as a string, generating and adding a
// new key when generate is true and the element is missing.
func EnsureKey(entity *communication.Entity, name string, generate bool) (string, error) {
	if el, ok := entity.Find(name); ok && el.Value != nil {
		key := fmt.Sprint(el.Value)
		if key != "" {
			return key, nil
		}
	}
	if !generate {
		return "", communication.KeyRequired(name)
	}
	key := NewID()
	entity.Add(name, key)
	return key, nil
}

// NormalizeJSON turns json.Number values produced by decoders using UseNumber into
// int64 or float64, recursively.
func NormalizeJSON(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]interface{}:
		for k, item := range t {
			t[k] = NormalizeJSON(item)
		}
		return t
	case []interface{}:
		for i, item := range t {
			t[i] = NormalizeJSON(item)
		}
		return t
	default:
		return v
	}
}

// EntityFromJSON converts a decoded JSON object into an entity, dropping the listed
// bookkeeping fields.
func EntityFromJSON(name string, doc map[string]interface{}, drop ...string) communication.Entity {
	for _, d := range drop {
		delete(doc, d)
	}
	normalized, _ := NormalizeJSON(doc).(map[string]interface{})
	return communication.EntityFromMap(name, normalized)
}

// QuoteString renders s as a double-quoted literal with backslash escapes.
func QuoteString(s string) string {
	return strconv.Quote(s)
}

// FormatLiteral renders a scalar for query languages that inline values.
func FormatLiteral(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return QuoteString(t)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return QuoteString(t.UTC().Format(time.RFC3339Nano))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return QuoteString(fmt.Sprint(t))
	}
}

// SplitQualified splits "family:qualifier" style names; without a separator the
// default prefix is returned.
func SplitQualified(name, sep, def string) (string, string) {
	if prefix, rest, ok := strings.Cut(name, sep); ok && prefix != "" {
		return prefix, rest
	}
	return def, name
}
