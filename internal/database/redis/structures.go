package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

func wrap(op string, err error) error {
	return adapter.WrapError(dbcapabilities.Redis, op, err)
}

// lookup converts a single-value reply, mapping redis.Nil to absent.
func lookup(op string, s string, err error) (communication.Value, bool, error) {
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap(op, err)
	}
	return communication.Value(s), true, nil
}

// count wraps the error of an integer reply.
func count(op string, cmd *redis.IntCmd) (int64, error) {
	n, err := cmd.Result()
	return n, wrap(op, err)
}

func encode(v interface{}) ([]byte, error) {
	enc, err := communication.EncodeValue(v)
	if err != nil {
		return nil, err
	}
	return []byte(enc), nil
}

func toValues(items []string) []communication.Value {
	out := make([]communication.Value, len(items))
	for i, s := range items {
		out[i] = communication.Value(s)
	}
	return out
}

// List is a Redis list of JSON values.
type List struct {
	key    string
	client redis.UniversalClient
}

// Add appends v.
func (l *List) Add(ctx context.Context, v interface{}) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return wrap("list add", l.client.RPush(ctx, l.key, data).Err())
}

// Get returns the element at index; false when out of range.
func (l *List) Get(ctx context.Context, index int64) (communication.Value, bool, error) {
	s, err := l.client.LIndex(ctx, l.key, index).Result()
	return lookup("list get", s, err)
}

// Set replaces the element at index.
func (l *List) Set(ctx context.Context, index int64, v interface{}) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return wrap("list set", l.client.LSet(ctx, l.key, index, data).Err())
}

// Remove deletes every occurrence of v and returns how many were removed.
func (l *List) Remove(ctx context.Context, v interface{}) (int64, error) {
	data, err := encode(v)
	if err != nil {
		return 0, err
	}
	return count("list remove", l.client.LRem(ctx, l.key, 0, data))
}

// All returns every element in order.
func (l *List) All(ctx context.Context) ([]communication.Value, error) {
	items, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, wrap("list all", err)
	}
	return toValues(items), nil
}

// Size returns the list length.
func (l *List) Size(ctx context.Context) (int64, error) {
	return count("list size", l.client.LLen(ctx, l.key))
}

// Clear deletes the list.
func (l *List) Clear(ctx context.Context) error {
	return wrap("list clear", l.client.Del(ctx, l.key).Err())
}

// Queue is a FIFO queue on a Redis list.
type Queue struct {
	key    string
	client redis.UniversalClient
}

// Offer adds v at the tail.
func (q *Queue) Offer(ctx context.Context, v interface{}) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return wrap("queue offer", q.client.RPush(ctx, q.key, data).Err())
}

// Poll removes and returns the head; false when empty.
func (q *Queue) Poll(ctx context.Context) (communication.Value, bool, error) {
	s, err := q.client.LPop(ctx, q.key).Result()
	return lookup("queue poll", s, err)
}

// Peek returns the head without removing it.
func (q *Queue) Peek(ctx context.Context) (communication.Value, bool, error) {
	s, err := q.client.LIndex(ctx, q.key, 0).Result()
	return lookup("queue peek", s, err)
}

// Size returns the number of queued values.
func (q *Queue) Size(ctx context.Context) (int64, error) {
	return count("queue size", q.client.LLen(ctx, q.key))
}

// Clear deletes the queue.
func (q *Queue) Clear(ctx context.Context) error {
	return wrap("queue clear", q.client.Del(ctx, q.key).Err())
}

// Set is a Redis set of JSON values.
type Set struct {
	key    string
	client redis.UniversalClient
}

// Add inserts v and reports whether it was new.
func (s *Set) Add(ctx context.Context, v interface{}) (bool, error) {
	data, err := encode(v)
	if err != nil {
		return false, err
	}
	n, err := count("set add", s.client.SAdd(ctx, s.key, data))
	return n > 0, err
}

// Remove deletes v and reports whether it was present.
func (s *Set) Remove(ctx context.Context, v interface{}) (bool, error) {
	data, err := encode(v)
	if err != nil {
		return false, err
	}
	n, err := count("set remove", s.client.SRem(ctx, s.key, data))
	return n > 0, err
}

// Contains reports whether v is a member.
func (s *Set) Contains(ctx context.Context, v interface{}) (bool, error) {
	data, err := encode(v)
	if err != nil {
		return false, err
	}
	ok, err := s.client.SIsMember(ctx, s.key, data).Result()
	return ok, wrap("set contains", err)
}

// Members returns every member in no particular order.
func (s *Set) Members(ctx context.Context) ([]communication.Value, error) {
	items, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, wrap("set members", err)
	}
	return toValues(items), nil
}

// Size returns the set cardinality.
func (s *Set) Size(ctx context.Context) (int64, error) {
	return count("set size", s.client.SCard(ctx, s.key))
}

// Clear deletes the set.
func (s *Set) Clear(ctx context.Context) error {
	return wrap("set clear", s.client.Del(ctx, s.key).Err())
}

// Map is a Redis hash with JSON values.
type Map struct {
	key    string
	client redis.UniversalClient
}

// Put sets field to v.
func (m *Map) Put(ctx context.Context, field string, v interface{}) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return wrap("map put", m.client.HSet(ctx, m.key, field, data).Err())
}

// Get returns the value of field; false when absent.
func (m *Map) Get(ctx context.Context, field string) (communication.Value, bool, error) {
	s, err := m.client.HGet(ctx, m.key, field).Result()
	return lookup("map get", s, err)
}

// Remove deletes field.
func (m *Map) Remove(ctx context.Context, field string) error {
	return wrap("map remove", m.client.HDel(ctx, m.key, field).Err())
}

// Keys returns the field names.
func (m *Map) Keys(ctx context.Context) ([]string, error) {
	keys, err := m.client.HKeys(ctx, m.key).Result()
	return keys, wrap("map keys", err)
}

// All returns every field with its value.
func (m *Map) All(ctx context.Context) (map[string]communication.Value, error) {
	items, err := m.client.HGetAll(ctx, m.key).Result()
	if err != nil {
		return nil, wrap("map all", err)
	}
	out := make(map[string]communication.Value, len(items))
	for k, v := range items {
		out[k] = communication.Value(v)
	}
	return out, nil
}

// Size returns the number of fields.
func (m *Map) Size(ctx context.Context) (int64, error) {
	return count("map size", m.client.HLen(ctx, m.key))
}

// Clear deletes the hash.
func (m *Map) Clear(ctx context.Context) error {
	return wrap("map clear", m.client.Del(ctx, m.key).Err())
}

// Ranking is a sorted set member with its score.
type Ranking struct {
	Member string
	Score  float64
}

// SortedSet is a Redis sorted set of string members.
type SortedSet struct {
	key    string
	client redis.UniversalClient
}

// Add sets the member's score.
func (z *SortedSet) Add(ctx context.Context, member string, score float64) error {
	return wrap("sorted set add", z.client.ZAdd(ctx, z.key, redis.Z{Score: score, Member: member}).Err())
}

// Increment adds delta to the member's score and returns the new score.
func (z *SortedSet) Increment(ctx context.Context, member string, delta float64) (float64, error) {
	score, err := z.client.ZIncrBy(ctx, z.key, delta, member).Result()
	return score, wrap("sorted set increment", err)
}

// Score returns the member's score; false when it is not a member.
func (z *SortedSet) Score(ctx context.Context, member string) (float64, bool, error) {
	score, err := z.client.ZScore(ctx, z.key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrap("sorted set score", err)
	}
	return score, true, nil
}

// Remove deletes the member.
func (z *SortedSet) Remove(ctx context.Context, member string) error {
	return wrap("sorted set remove", z.client.ZRem(ctx, z.key, member).Err())
}

// Ranking returns members from the lowest to the highest score.
func (z *SortedSet) Ranking(ctx context.Context) ([]Ranking, error) {
	return z.rank(z.client.ZRangeWithScores(ctx, z.key, 0, -1))
}

// RevRanking returns members from the highest to the lowest score.
func (z *SortedSet) RevRanking(ctx context.Context) ([]Ranking, error) {
	return z.rank(z.client.ZRevRangeWithScores(ctx, z.key, 0, -1))
}

func (z *SortedSet) rank(cmd *redis.ZSliceCmd) ([]Ranking, error) {
	items, err := cmd.Result()
	if err != nil {
		return nil, wrap("sorted set ranking", err)
	}
	out := make([]Ranking, len(items))
	for i, item := range items {
		member, _ := item.Member.(string)
		out[i] = Ranking{Member: member, Score: item.Score}
	}
	return out, nil
}

// Size returns the number of members.
func (z *SortedSet) Size(ctx context.Context) (int64, error) {
	return count("sorted set size", z.client.ZCard(ctx, z.key))
}

// Clear deletes the sorted set.
func (z *SortedSet) Clear(ctx context.Context) error {
	return wrap("sorted set clear", z.client.Del(ctx, z.key).Err())
}

// Counter is an integer counter.
type Counter struct {
	key    string
	client redis.UniversalClient
}

// Get returns the current value; a missing counter is zero.
func (c *Counter) Get(ctx context.Context) (int64, error) {
	n, err := c.client.Get(ctx, c.key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, wrap("counter get", err)
}

// Increment adds delta and returns the new value.
func (c *Counter) Increment(ctx context.Context, delta int64) (int64, error) {
	return count("counter increment", c.client.IncrBy(ctx, c.key, delta))
}

// Decrement subtracts delta and returns the new value.
func (c *Counter) Decrement(ctx context.Context, delta int64) (int64, error) {
	return count("counter decrement", c.client.DecrBy(ctx, c.key, delta))
}

// Clear deletes the counter.
func (c *Counter) Clear(ctx context.Context) error {
	return wrap("counter clear", c.client.Del(ctx, c.key).Err())
}
