// Package data implements the nosqlctl commands that read and write entities.
package data

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/output"
	"github.com/redbco/redb-nosql/internal/database"
	"github.com/redbco/redb-nosql/pkg/communication"
)

// Ping checks the connection and writes its details.
func Ping(ctx context.Context, w io.Writer, f output.Format, cm *database.ConnectionManager, id string) error {
	if err := cm.CheckHealth(ctx, id); err != nil {
		return err
	}
	info, err := cm.GetConnectionInfo(id)
	if err != nil {
		return err
	}
	if f != output.Table {
		return output.Value(w, f, info)
	}
	fmt.Fprintf(w, "Connection %s to %v is healthy\n", id, info["product"])
	return nil
}

// Select runs the query and writes the matching entities.
func Select(ctx context.Context, w io.Writer, f output.Format, m communication.Selector, q communication.SelectQuery) error {
	entities, err := m.Select(ctx, q)
	if err != nil {
		return err
	}
	return output.Entities(w, f, entities)
}

// Count writes the number of entities stored under entity.
func Count(ctx context.Context, w io.Writer, f output.Format, m communication.DocumentManager, entity string) error {
	n, err := m.Count(ctx, entity)
	if err != nil {
		return err
	}
	if f != output.Table {
		return output.Value(w, f, map[string]interface{}{"entity": entity, "count": n})
	}
	_, err = fmt.Fprintln(w, n)
	return err
}

// Delete removes the entities, or the listed fields, matching the query.
func Delete(ctx context.Context, w io.Writer, m communication.DocumentManager, q communication.DeleteQuery) error {
	if err := m.Delete(ctx, q); err != nil {
		return err
	}
	target := "entities"
	if len(q.Fields) > 0 {
		target = fmt.Sprintf("fields %v of entities", q.Fields)
	}
	_, err := fmt.Fprintf(w, "Deleted %s in %s\n", target, q.Entity)
	return err
}

// Insert stores the entities, each expiring after ttl when ttl is positive, and
// writes them as stored.
func Insert(ctx context.Context, w io.Writer, f output.Format, m communication.DocumentManager, entities []communication.Entity, ttl time.Duration) error {
	var (
		stored []communication.Entity
		err    error
	)
	if ttl > 0 {
		stored, err = communication.InsertEach(ctx, entities, func(ctx context.Context, e communication.Entity) (communication.Entity, error) {
			return m.InsertTTL(ctx, e, ttl)
		})
	} else {
		stored, err = m.InsertAll(ctx, entities)
	}
	if err != nil {
		return err
	}
	return output.Entities(w, f, stored)
}

// Update replaces stored entities identified by their key elements.
func Update(ctx context.Context, w io.Writer, f output.Format, m communication.DocumentManager, entities []communication.Entity) error {
	stored, err := m.UpdateAll(ctx, entities)
	if err != nil {
		return err
	}
	return output.Entities(w, f, stored)
}
