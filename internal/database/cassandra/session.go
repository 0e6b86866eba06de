package cassandra

import (
	"context"

	"github.com/gocql/gocql"
)

// runner executes CQL. sessionRunner is the gocql implementation.
type runner interface {
	exec(ctx context.Context, statement string, args []interface{}) error
	rows(ctx context.Context, statement string, args []interface{}) ([]map[string]interface{}, error)
	count(ctx context.Context, statement string) (int64, error)
}

type sessionRunner struct {
	session *gocql.Session
}

func (r *sessionRunner) exec(ctx context.Context, statement string, args []interface{}) error {
	return r.session.Query(statement, args...).WithContext(ctx).Exec()
}

func (r *sessionRunner) rows(ctx context.Context, statement string, args []interface{}) ([]map[string]interface{}, error) {
	iter := r.session.Query(statement, args...).WithContext(ctx).Iter()

	var result []map[string]interface{}
	row := make(map[string]interface{})
	for iter.MapScan(row) {
		result = append(result, row)
		row = make(map[string]interface{})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *sessionRunner) count(ctx context.Context, statement string) (int64, error) {
	var n int64
	if err := r.session.Query(statement).WithContext(ctx).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// convertValue turns gocql specific values into plain Go values.
func convertValue(v interface{}) interface{} {
	switch t := v.(type) {
	case gocql.UUID:
		return t.String()
	case []gocql.UUID:
		out := make([]interface{}, len(t))
		for i, u := range t {
			out[i] = u.String()
		}
		return out
	case map[string]interface{}:
		for k, item := range t {
			t[k] = convertValue(item)
		}
		return t
	default:
		return v
	}
}
