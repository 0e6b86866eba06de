package communication

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBuilder(t *testing.T) {
	q, err := Select("name", "age").
		From("person").
		Where(Gte("age", 18)).
		And(Eq("active", true)).
		Or(Eq("role", "admin")).
		Desc("age").
		Asc("name").
		Skip(5).
		Limit(10).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "person", q.Entity)
	assert.Equal(t, []string{"name", "age"}, q.Fields)
	assert.Equal(t, []Sort{SortDesc("age"), SortAsc("name")}, q.Sorts)
	assert.Equal(t, int64(5), q.Skip)
	assert.Equal(t, int64(10), q.Limit)

	require.NotNil(t, q.Condition)
	assert.Equal(t, Or, q.Condition.Operator)
	assert.Equal(t, And, q.Condition.Children()[0].Operator)
}

func TestSelectBuilderErrors(t *testing.T) {
	_, err := Select().Build()
	assert.ErrorIs(t, err, ErrEntityRequired)

	_, err = Select().From("person").Where(AndOf()).Build()
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = Select().From("person").Limit(-1).Build()
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = Select().From("person").Where(InOf("city")).Build()
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = Delete().From("person").Where(InOf("city")).Build()
	assert.ErrorIs(t, err, ErrInvalidCondition)
}

func TestDeleteBuilder(t *testing.T) {
	q, err := Delete("nickname").From("person").Where(Eq("name", "Ada")).Or(Eq("name", "Bob")).Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"nickname"}, q.Fields)
	assert.Equal(t, Or, q.Condition.Operator)

	_, err = Delete().Build()
	assert.ErrorIs(t, err, ErrEntityRequired)
}

type stubSelector struct {
	entities []Entity
	err      error
}

func (s stubSelector) Select(ctx context.Context, q SelectQuery) ([]Entity, error) {
	return s.entities, s.err
}

func TestSingleResult(t *testing.T) {
	ctx := context.Background()
	q := SelectQuery{Entity: "person"}

	_, found, err := SingleResult(ctx, stubSelector{}, q)
	require.NoError(t, err)
	assert.False(t, found)

	one := NewEntity("person")
	one.Add("name", "Ada")
	got, found, err := SingleResult(ctx, stubSelector{entities: []Entity{one}}, q)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ada", got.Value("name"))

	_, _, err = SingleResult(ctx, stubSelector{entities: []Entity{one, one}}, q)
	assert.ErrorIs(t, err, ErrNonUniqueResult)
}

func TestInsertEach(t *testing.T) {
	calls := 0
	out, err := InsertEach(context.Background(), []Entity{NewEntity("a"), NewEntity("b")},
		func(ctx context.Context, e Entity) (Entity, error) {
			calls++
			e.Add("id", calls)
			return e, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, out[1].Value("id"))
}

func TestValueEncoding(t *testing.T) {
	e := NewEntity("person")
	e.Add("name", "Ada")
	e.Add("born", 1815)

	v, err := EncodeValue(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ada","born":1815}`, v.String())

	var decoded map[string]interface{}
	require.NoError(t, v.Decode(&decoded))
	assert.Equal(t, "Ada", decoded["name"])

	s, err := EncodeValue("plain")
	require.NoError(t, err)
	assert.Equal(t, `"plain"`, string(s.Bytes()))
	assert.Equal(t, "plain", s.String())

	raw, err := EncodeValue([]byte("binary"))
	require.NoError(t, err)
	assert.Equal(t, "binary", raw.String())

	_, err = EncodeValue(make(chan int))
	assert.Error(t, err)
}
