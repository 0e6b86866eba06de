package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// store is the subset of collection operations the document manager runs.
type store interface {
	insertOne(ctx context.Context, collection string, doc bson.D) error
	replaceOne(ctx context.Context, collection string, filter, doc bson.D) (matched int64, err error)
	updateMany(ctx context.Context, collection string, filter, update bson.D) error
	deleteMany(ctx context.Context, collection string, filter bson.D) error
	find(ctx context.Context, plan findPlan) ([]bson.D, error)
	count(ctx context.Context, collection string) (int64, error)
}

// databaseStore runs the operations against a *mongo.Database.
type databaseStore struct {
	db *mongo.Database
}

func (s *databaseStore) insertOne(ctx context.Context, collection string, doc bson.D) error {
	_, err := s.db.Collection(collection).InsertOne(ctx, doc)
	return err
}

func (s *databaseStore) replaceOne(ctx context.Context, collection string, filter, doc bson.D) (int64, error) {
	res, err := s.db.Collection(collection).ReplaceOne(ctx, filter, doc)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (s *databaseStore) updateMany(ctx context.Context, collection string, filter, update bson.D) error {
	_, err := s.db.Collection(collection).UpdateMany(ctx, filter, update)
	return err
}

func (s *databaseStore) deleteMany(ctx context.Context, collection string, filter bson.D) error {
	_, err := s.db.Collection(collection).DeleteMany(ctx, filter)
	return err
}

func (s *databaseStore) find(ctx context.Context, plan findPlan) ([]bson.D, error) {
	opts := options.Find()
	if len(plan.projection) > 0 {
		opts.SetProjection(plan.projection)
	}
	if len(plan.sort) > 0 {
		opts.SetSort(plan.sort)
	}
	if plan.skip > 0 {
		opts.SetSkip(plan.skip)
	}
	if plan.limit > 0 {
		opts.SetLimit(plan.limit)
	}

	cursor, err := s.db.Collection(plan.collection).Find(ctx, plan.filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *databaseStore) count(ctx context.Context, collection string) (int64, error) {
	return s.db.Collection(collection).CountDocuments(ctx, bson.D{})
}
