// Package output renders nosqlctl results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/redbco/redb-nosql/pkg/communication"
)

// Format selects how results are written.
type Format string

const (
	Table Format = "table"
	JSON  Format = "json"
	YAML  Format = "yaml"
)

// Resolve validates a --output value. An empty value picks a table for terminals and
// JSON otherwise.
func Resolve(value string, out *os.File) (Format, error) {
	switch Format(strings.ToLower(value)) {
	case "":
		if out != nil && term.IsTerminal(int(out.Fd())) {
			return Table, nil
		}
		return JSON, nil
	case Table:
		return Table, nil
	case JSON:
		return JSON, nil
	case YAML, "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use table, json or yaml)", value)
	}
}

// NewTabWriter returns the tabwriter used for every table.
func NewTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
}

// Value writes any value. Tables fall back to YAML for values that are not entities.
func Value(w io.Writer, f Format, v interface{}) error {
	switch f {
	case JSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	default:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	}
}

// Entities writes entities; tables get one column per element name.
func Entities(w io.Writer, f Format, entities []communication.Entity) error {
	if f != Table {
		docs := make([]map[string]interface{}, 0, len(entities))
		for _, e := range entities {
			docs = append(docs, e.ToMap())
		}
		return Value(w, f, docs)
	}

	if len(entities) == 0 {
		_, err := fmt.Fprintln(w, "No entities found.")
		return err
	}

	columns := columnNames(entities)
	tw := NewTabWriter(w)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(columns, "\t")))
	for _, e := range entities {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = Cell(e.ToMap()[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// columnNames returns the element names of all entities, first entity order first.
func columnNames(entities []communication.Entity) []string {
	seen := make(map[string]bool)
	var columns, extra []string
	for i, e := range entities {
		for _, name := range e.Names() {
			if seen[name] {
				continue
			}
			seen[name] = true
			if i == 0 {
				columns = append(columns, name)
			} else {
				extra = append(extra, name)
			}
		}
	}
	sort.Strings(extra)
	return append(columns, extra...)
}

// Cell renders a value for a table cell. Nested values are shown as compact JSON.
func Cell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
