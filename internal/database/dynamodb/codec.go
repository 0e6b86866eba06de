package dynamodb

import (
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/redbco/redb-nosql/pkg/communication"
)

func marshalEntity(entity communication.Entity) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(entity.ToMap())
}

// unmarshalItem decodes an item keeping integral numbers as int64.
func unmarshalItem(item map[string]types.AttributeValue) (map[string]interface{}, error) {
	var doc map[string]interface{}
	err := attributevalue.UnmarshalMapWithOptions(item, &doc, func(o *attributevalue.DecoderOptions) {
		o.UseNumber = true
	})
	if err != nil {
		return nil, err
	}
	normalized, _ := normalize(doc).(map[string]interface{})
	return normalized, nil
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case attributevalue.Number:
		s := string(t)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		f, _ := strconv.ParseFloat(s, 64)
		return f
	case map[string]interface{}:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case []interface{}:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	case []attributevalue.Number:
		out := make([]interface{}, len(t))
		for i, n := range t {
			out[i] = normalize(n)
		}
		return out
	default:
		return v
	}
}

// itemToEntity converts a decoded item, dropping the expiry attribute.
func itemToEntity(name string, item map[string]types.AttributeValue, ttlAttr string) (communication.Entity, error) {
	doc, err := unmarshalItem(item)
	if err != nil {
		return communication.Entity{}, err
	}
	delete(doc, ttlAttr)
	return communication.EntityFromMap(name, doc), nil
}

// keyOf extracts the primary key attributes of an item.
func keyOf(item map[string]types.AttributeValue, ks keySchema) map[string]types.AttributeValue {
	key := make(map[string]types.AttributeValue, 2)
	for _, name := range ks.names() {
		if av, ok := item[name]; ok {
			key[name] = av
		}
	}
	return key
}
