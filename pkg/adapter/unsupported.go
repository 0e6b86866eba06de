package adapter

import (
	"context"
	"time"

	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// UnsupportedEntityManager is a nil object pattern for databases without document or column managers.
type UnsupportedEntityManager struct {
	dbType dbcapabilities.DatabaseID
	kind   string
}

func (u *UnsupportedEntityManager) err(op string) error {
	return NewUnsupportedOperationError(u.dbType, u.kind+" "+op, "")
}

func (u *UnsupportedEntityManager) Insert(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	return communication.Entity{}, u.err("insert")
}

func (u *UnsupportedEntityManager) InsertTTL(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	return communication.Entity{}, u.err("insert")
}

func (u *UnsupportedEntityManager) InsertAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return nil, u.err("insert")
}

func (u *UnsupportedEntityManager) Update(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	return communication.Entity{}, u.err("update")
}

func (u *UnsupportedEntityManager) UpdateAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return nil, u.err("update")
}

func (u *UnsupportedEntityManager) Delete(ctx context.Context, query communication.DeleteQuery) error {
	return u.err("delete")
}

func (u *UnsupportedEntityManager) Select(ctx context.Context, query communication.SelectQuery) ([]communication.Entity, error) {
	return nil, u.err("select")
}

func (u *UnsupportedEntityManager) Count(ctx context.Context, entity string) (int64, error) {
	return 0, u.err("count")
}

func (u *UnsupportedEntityManager) Close() error {
	return nil
}

// NewUnsupportedDocumentManager creates a document manager whose operations all fail as unsupported.
func NewUnsupportedDocumentManager(dbType dbcapabilities.DatabaseID) communication.DocumentManager {
	return &UnsupportedEntityManager{dbType: dbType, kind: "document"}
}

// NewUnsupportedColumnManager creates a column manager whose operations all fail as unsupported.
func NewUnsupportedColumnManager(dbType dbcapabilities.DatabaseID) communication.ColumnManager {
	return &UnsupportedEntityManager{dbType: dbType, kind: "column"}
}

// UnsupportedBucketManagerFactory is a nil object pattern for databases without key-value access.
type UnsupportedBucketManagerFactory struct {
	dbType dbcapabilities.DatabaseID
}

func (u *UnsupportedBucketManagerFactory) Bucket(name string) (communication.BucketManager, error) {
	return nil, NewUnsupportedOperationError(u.dbType, "key-value buckets", "")
}

func (u *UnsupportedBucketManagerFactory) Close() error {
	return nil
}

// NewUnsupportedBucketManagerFactory creates a bucket factory that refuses every bucket.
func NewUnsupportedBucketManagerFactory(dbType dbcapabilities.DatabaseID) communication.BucketManagerFactory {
	return &UnsupportedBucketManagerFactory{dbType: dbType}
}

// IsUnsupportedManager reports whether m is one of the nil objects above.
func IsUnsupportedManager(m interface{}) bool {
	switch m.(type) {
	case *UnsupportedEntityManager, *UnsupportedBucketManagerFactory:
		return true
	}
	return false
}
