package couchbase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/couchbase/gocb/v2"
)

// store is the subset of scope operations the document manager runs.
type store interface {
	insert(ctx context.Context, collection, key string, doc map[string]interface{}, ttl time.Duration) error
	replace(ctx context.Context, collection, key string, doc map[string]interface{}) (bool, error)
	query(ctx context.Context, stmt string, params map[string]interface{}) ([]json.RawMessage, error)
}

// scopeStore runs the operations against a gocb scope.
type scopeStore struct {
	scope *gocb.Scope
}

func (s *scopeStore) insert(ctx context.Context, collection, key string, doc map[string]interface{}, ttl time.Duration) error {
	_, err := s.scope.Collection(collection).Insert(key, doc, &gocb.InsertOptions{Expiry: ttl, Context: ctx})
	return err
}

func (s *scopeStore) replace(ctx context.Context, collection, key string, doc map[string]interface{}) (bool, error) {
	_, err := s.scope.Collection(collection).Replace(key, doc, &gocb.ReplaceOptions{Context: ctx})
	if errors.Is(err, gocb.ErrDocumentNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *scopeStore) query(ctx context.Context, stmt string, params map[string]interface{}) ([]json.RawMessage, error) {
	res, err := s.scope.Query(stmt, &gocb.QueryOptions{NamedParameters: params, Context: ctx})
	if err != nil {
		return nil, err
	}
	defer res.Close()

	var rows []json.RawMessage
	for res.Next() {
		var raw json.RawMessage
		if err := res.Row(&raw); err != nil {
			return nil, err
		}
		rows = append(rows, raw)
	}
	return rows, res.Err()
}
