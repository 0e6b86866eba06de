package hbase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/communication"
)

// encodeValue stores strings as UTF-8 and everything else as JSON.
func encodeValue(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	case time.Time:
		return []byte(t.UTC().Format(time.RFC3339Nano)), nil
	}
	return json.Marshal(communication.ToNative(v))
}

// decodeValue reverses encodeValue: JSON numbers, booleans, objects and arrays are
// decoded, anything else is returned as a string.
func decodeValue(b []byte) interface{} {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		switch c := trimmed[0]; {
		case c == '{' || c == '[' || c == '-' || (c >= '0' && c <= '9'):
			dec := json.NewDecoder(bytes.NewReader(trimmed))
			dec.UseNumber()
			var v interface{}
			if err := dec.Decode(&v); err == nil {
				return common.NormalizeJSON(v)
			}
		case string(trimmed) == "true" || string(trimmed) == "false":
			b, _ := strconv.ParseBool(string(trimmed))
			return b
		}
	}
	if utf8.Valid(b) {
		return string(b)
	}
	return b
}

// toColumns splits the entity into family:qualifier columns. The row key element is
// not stored as a column.
func toColumns(entity communication.Entity, family string) (columns, error) {
	cols := make(columns)
	for _, el := range entity.Elements {
		if el.Name == keyField {
			continue
		}
		fam, qualifier := common.SplitQualified(el.Name, ":", family)
		value, err := encodeValue(el.Value)
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", el.Name, err)
		}
		if cols[fam] == nil {
			cols[fam] = make(map[string][]byte)
		}
		cols[fam][qualifier] = value
	}
	return cols, nil
}

// toEntity rebuilds an entity from a row. Columns of the default family are named by
// their qualifier alone.
func toEntity(name string, r row, family string) communication.Entity {
	e := communication.NewEntity(name)
	e.Add(keyField, r.key)
	for _, c := range r.cells {
		elName := c.qualifier
		if c.family != family {
			elName = c.family + ":" + c.qualifier
		}
		e.Add(elName, decodeValue(c.value))
	}
	return e
}

// fieldColumns maps element names to the columns a field delete removes.
func fieldColumns(fields []string, family string) columns {
	cols := make(columns)
	for _, f := range fields {
		if f == keyField {
			continue
		}
		fam, qualifier := common.SplitQualified(f, ":", family)
		if cols[fam] == nil {
			cols[fam] = make(map[string][]byte)
		}
		cols[fam][qualifier] = nil
	}
	return cols
}
