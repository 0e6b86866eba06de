package hbase

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/tsuna/gohbase"
	"github.com/tsuna/gohbase/filter"
	"github.com/tsuna/gohbase/hrpc"
)

// cell is one family:qualifier value of a row.
type cell struct {
	family    string
	qualifier string
	value     []byte
}

type row struct {
	key   string
	cells []cell
}

// columns maps family to qualifier to value, the shape hrpc mutations take.
type columns map[string]map[string][]byte

// store is the subset of table operations the column manager runs.
type store interface {
	put(ctx context.Context, table, key string, values columns, ttl time.Duration) error
	get(ctx context.Context, table, key string) (row, bool, error)
	scan(ctx context.Context, table string, keysOnly bool) ([]row, error)
	delete(ctx context.Context, table, key string, values columns) error
}

// clientStore runs the operations through a gohbase client.
type clientStore struct {
	client gohbase.Client
}

func toRow(key string, cells []*hrpc.Cell) row {
	r := row{key: key, cells: make([]cell, 0, len(cells))}
	for _, c := range cells {
		r.cells = append(r.cells, cell{family: string(c.Family), qualifier: string(c.Qualifier), value: c.Value})
	}
	return r
}

func (s *clientStore) put(ctx context.Context, table, key string, values columns, ttl time.Duration) error {
	var opts []func(hrpc.Call) error
	if ttl > 0 {
		opts = append(opts, hrpc.TTL(ttl))
	}
	req, err := hrpc.NewPutStr(ctx, table, key, values, opts...)
	if err != nil {
		return err
	}
	_, err = s.client.Put(req)
	return err
}

func (s *clientStore) get(ctx context.Context, table, key string) (row, bool, error) {
	req, err := hrpc.NewGetStr(ctx, table, key)
	if err != nil {
		return row{}, false, err
	}
	res, err := s.client.Get(req)
	if err != nil {
		return row{}, false, err
	}
	if res == nil || len(res.Cells) == 0 {
		return row{}, false, nil
	}
	return toRow(key, res.Cells), true, nil
}

func (s *clientStore) scan(ctx context.Context, table string, keysOnly bool) ([]row, error) {
	var opts []func(hrpc.Call) error
	if keysOnly {
		opts = append(opts, hrpc.Filters(filter.NewFirstKeyOnlyFilter()))
	}
	req, err := hrpc.NewScanStr(ctx, table, opts...)
	if err != nil {
		return nil, err
	}
	scanner := s.client.Scan(req)
	defer scanner.Close()

	var rows []row
	for {
		res, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		if len(res.Cells) == 0 {
			continue
		}
		rows = append(rows, toRow(string(res.Cells[0].Row), res.Cells))
	}
}

func (s *clientStore) delete(ctx context.Context, table, key string, values columns) error {
	req, err := hrpc.NewDelStr(ctx, table, key, values)
	if err != nil {
		return err
	}
	_, err = s.client.Delete(req)
	return err
}
