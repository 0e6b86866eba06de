package common

import (
	"strconv"
	"strings"
)

// BindParams collects named query parameters and hands out collision-free names.
// The first value bound for field "age" is named "age", the next "age_1", "age_2"...
// Characters not valid in parameter names become underscores.
type BindParams struct {
	values map[string]interface{}
	names  []string
}

// NewBindParams creates an empty parameter set.
func NewBindParams() *BindParams {
	return &BindParams{values: make(map[string]interface{})}
}

// Bind stores value under a name derived from field and returns that name.
func (p *BindParams) Bind(field string, value interface{}) string {
	base := sanitizeParamName(field)
	name := base
	for i := 1; ; i++ {
		if _, taken := p.values[name]; !taken {
			break
		}
		name = base + "_" + strconv.Itoa(i)
	}
	p.values[name] = value
	p.names = append(p.names, name)
	return name
}

// Values returns the bound parameters.
func (p *BindParams) Values() map[string]interface{} {
	return p.values
}

// Names returns parameter names in bind order.
func (p *BindParams) Names() []string {
	return p.names
}

// Len returns the number of bound parameters.
func (p *BindParams) Len() int {
	return len(p.names)
}

func sanitizeParamName(field string) string {
	var b strings.Builder
	for _, r := range field {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" {
		return "p"
	}
	if name[0] >= '0' && name[0] <= '9' {
		return "p_" + name
	}
	return name
}
