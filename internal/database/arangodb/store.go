package arangodb

import (
	"context"
	"sync"

	driver "github.com/arangodb/go-driver"
)

// store is the subset of database operations the document and bucket managers run.
// Operations on a missing collection report not found instead of failing, except
// createDocument which creates it.
type store interface {
	hasCollection(ctx context.Context, name string) (bool, error)
	createCollection(ctx context.Context, name string) error
	createDocument(ctx context.Context, collection string, doc map[string]interface{}) error
	updateDocument(ctx context.Context, collection, key string, doc map[string]interface{}) (bool, error)
	readDocument(ctx context.Context, collection, key string, out interface{}) (bool, error)
	count(ctx context.Context, collection string) (int64, error)
	query(ctx context.Context, aql string, vars map[string]interface{}) ([]map[string]interface{}, error)
}

// databaseStore runs the operations against a driver.Database and caches the
// collection handles it opens.
type databaseStore struct {
	db driver.Database

	mu          sync.Mutex
	collections map[string]driver.Collection
}

func newDatabaseStore(db driver.Database) *databaseStore {
	return &databaseStore{db: db, collections: make(map[string]driver.Collection)}
}

// collection returns the named collection, creating it when create is true and it
// does not exist yet. A missing collection without create yields nil.
func (s *databaseStore) collection(ctx context.Context, name string, create bool) (driver.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if coll, ok := s.collections[name]; ok {
		return coll, nil
	}

	exists, err := s.db.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	var coll driver.Collection
	switch {
	case exists:
		coll, err = s.db.Collection(ctx, name)
	case create:
		coll, err = s.db.CreateCollection(ctx, name, nil)
		if driver.IsConflict(err) {
			coll, err = s.db.Collection(ctx, name)
		}
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.collections[name] = coll
	return coll, nil
}

func (s *databaseStore) hasCollection(ctx context.Context, name string) (bool, error) {
	coll, err := s.collection(ctx, name, false)
	return coll != nil, err
}

func (s *databaseStore) createCollection(ctx context.Context, name string) error {
	_, err := s.collection(ctx, name, true)
	return err
}

func (s *databaseStore) createDocument(ctx context.Context, collection string, doc map[string]interface{}) error {
	coll, err := s.collection(ctx, collection, true)
	if err != nil {
		return err
	}
	_, err = coll.CreateDocument(ctx, doc)
	return err
}

func (s *databaseStore) updateDocument(ctx context.Context, collection, key string, doc map[string]interface{}) (bool, error) {
	coll, err := s.collection(ctx, collection, false)
	if err != nil || coll == nil {
		return false, err
	}
	if _, err := coll.UpdateDocument(ctx, key, doc); err != nil {
		if driver.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *databaseStore) readDocument(ctx context.Context, collection, key string, out interface{}) (bool, error) {
	coll, err := s.collection(ctx, collection, false)
	if err != nil || coll == nil {
		return false, err
	}
	if _, err := coll.ReadDocument(ctx, key, out); err != nil {
		if driver.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *databaseStore) count(ctx context.Context, collection string) (int64, error) {
	coll, err := s.collection(ctx, collection, false)
	if err != nil || coll == nil {
		return 0, err
	}
	return coll.Count(ctx)
}

// query runs aql and decodes every result row.
func (s *databaseStore) query(ctx context.Context, aql string, vars map[string]interface{}) ([]map[string]interface{}, error) {
	cursor, err := s.db.Query(ctx, aql, vars)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var rows []map[string]interface{}
	for {
		var row map[string]interface{}
		_, err := cursor.ReadDocument(ctx, &row)
		if driver.IsNoMoreDocuments(err) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}
