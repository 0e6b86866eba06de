// Package kv implements the nosqlctl bucket commands.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/output"
	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/queryfile"
	"github.com/redbco/redb-nosql/pkg/communication"
)

// decoded returns the stored JSON value, or its raw text when it is not JSON.
func decoded(v communication.Value) interface{} {
	var out interface{}
	if err := json.Unmarshal(v, &out); err != nil {
		return string(v)
	}
	return out
}

// Get writes the values stored under keys. A single missing key is an error; with
// several keys missing ones are skipped.
func Get(ctx context.Context, w io.Writer, f output.Format, b communication.BucketManager, keys []string) error {
	if len(keys) == 1 {
		value, ok, err := b.Get(ctx, keys[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("key %q not found in bucket %s", keys[0], b.Name())
		}
		if f == output.Table {
			_, err = fmt.Fprintln(w, value.String())
			return err
		}
		return output.Value(w, f, decoded(value))
	}

	values, err := b.GetAll(ctx, keys)
	if err != nil {
		return err
	}

	if f != output.Table {
		out := make(map[string]interface{}, len(values))
		for _, kv := range values {
			out[kv.Key] = decodedAny(kv.Value)
		}
		return output.Value(w, f, out)
	}

	tw := output.NewTabWriter(w)
	fmt.Fprintln(tw, "KEY\tVALUE")
	for _, kv := range values {
		fmt.Fprintf(tw, "%s\t%s\n", kv.Key, output.Cell(decodedAny(kv.Value)))
	}
	return tw.Flush()
}

func decodedAny(v interface{}) interface{} {
	switch t := v.(type) {
	case communication.Value:
		return decoded(t)
	case []byte:
		return decoded(communication.Value(t))
	default:
		return v
	}
}

// Put stores raw under key. raw is decoded as YAML, so numbers and documents keep
// their type; ttl applies when positive.
func Put(ctx context.Context, w io.Writer, b communication.BucketManager, key, raw string, ttl time.Duration) error {
	value := queryfile.ParseValue(raw)
	var err error
	if ttl > 0 {
		err = b.PutTTL(ctx, key, value, ttl)
	} else {
		err = b.Put(ctx, key, value)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Stored %s in bucket %s\n", key, b.Name())
	return err
}

// Delete removes keys from the bucket.
func Delete(ctx context.Context, w io.Writer, b communication.BucketManager, keys []string) error {
	if err := b.DeleteAll(ctx, keys); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Deleted %d key(s) from bucket %s\n", len(keys), b.Name())
	return err
}
