package dynamodb

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dynabridge/dynabridge/pkg/dbservice"
)

// EntityToObject normalizes an entity value to a plain attribute map.
// Serializable wrappers render themselves; maps pass through; anything else
// goes through an attribute-value round trip. Values with no map
// representation yield nil.
func (a *Adapter) EntityToObject(v any) dbservice.Entity {
	switch e := v.(type) {
	case nil:
		return nil
	case dbservice.Serializable:
		return e.ToObject()
	case dbservice.Entity:
		return e
	case map[string]any:
		return dbservice.Entity(e)
	}

	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		a.logger.Warn("entity has no object representation", "type", fmt.Sprintf("%T", v))
		return nil
	}
	entity, err := unmarshalItem(item)
	if err != nil {
		a.logger.Warn("entity round trip failed", "type", fmt.Sprintf("%T", v), "error", err)
		return nil
	}
	return entity
}

// unmarshalItem decodes a DynamoDB item into an entity map.
func unmarshalItem(item map[string]types.AttributeValue) (dbservice.Entity, error) {
	var m map[string]any
	if err := attributevalue.UnmarshalMap(item, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return dbservice.Entity(m), nil
}
