package dynamodb

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dynabridge/dynabridge/pkg/dbservice"
)

// Cursor is a prepared scan over the adapter's table. It is single-use:
// All or Count consumes it.
type Cursor struct {
	client Client
	input  *awsdynamodb.ScanInput
	limit  int
}

// CreateCursor translates a filter into a scan cursor without executing it.
// Equality terms and search terms become a filter expression; Sort and
// Offset are not expressible on a DynamoDB scan and are ignored.
func (a *Adapter) CreateCursor(f dbservice.Filter) (*Cursor, error) {
	input := &awsdynamodb.ScanInput{
		TableName: aws.String(a.cfg.Table),
	}

	expr, names, values, err := buildFilterExpression(f)
	if err != nil {
		return nil, err
	}
	if expr != "" {
		input.FilterExpression = aws.String(expr)
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}
	if f.Limit > 0 {
		input.Limit = aws.Int32(int32(f.Limit))
	}

	return &Cursor{client: a.client, input: input, limit: f.Limit}, nil
}

// Input exposes the underlying scan request. Read-only.
func (c *Cursor) Input() *awsdynamodb.ScanInput {
	return c.input
}

// All drains the cursor, following pagination until the limit or the end of
// the match set is reached.
func (c *Cursor) All(ctx context.Context) ([]dbservice.Entity, error) {
	var entities []dbservice.Entity
	for {
		out, err := c.client.Scan(ctx, c.input)
		if err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			entity, err := unmarshalItem(item)
			if err != nil {
				return nil, err
			}
			entities = append(entities, entity)
			if c.limit > 0 && len(entities) >= c.limit {
				return entities, nil
			}
		}
		if out.LastEvaluatedKey == nil {
			return entities, nil
		}
		c.input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// Count drains the cursor in COUNT mode, summing page counts without
// transferring items.
func (c *Cursor) Count(ctx context.Context) (int64, error) {
	c.input.Select = types.SelectCount
	c.input.Limit = nil

	var total int64
	for {
		out, err := c.client.Scan(ctx, c.input)
		if err != nil {
			return 0, err
		}
		total += int64(out.Count)
		if out.LastEvaluatedKey == nil {
			return total, nil
		}
		c.input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// buildFilterExpression renders the filter's equality and search terms.
// Query keys are emitted in sorted order so identical filters always produce
// identical expressions.
func buildFilterExpression(f dbservice.Filter) (string, map[string]string, map[string]types.AttributeValue, error) {
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	expr := ""

	keys := make([]string, 0, len(f.Query))
	for k := range f.Query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, k := range keys {
		av, err := attributevalue.Marshal(f.Query[k])
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to marshal query value for %q: %w", k, err)
		}
		namePlaceholder := fmt.Sprintf("#f%d", i)
		valuePlaceholder := fmt.Sprintf(":v%d", i)
		names[namePlaceholder] = k
		values[valuePlaceholder] = av
		if expr != "" {
			expr += " AND "
		}
		expr += namePlaceholder + " = " + valuePlaceholder
	}

	if f.Search != "" && len(f.SearchFields) > 0 {
		values[":search"] = &types.AttributeValueMemberS{Value: f.Search}

		search := ""
		for i, field := range f.SearchFields {
			placeholder := fmt.Sprintf("#s%d", i)
			names[placeholder] = field
			if search != "" {
				search += " OR "
			}
			search += "contains(" + placeholder + ", :search)"
		}
		if expr != "" {
			expr += " AND (" + search + ")"
		} else {
			expr = search
		}
	}

	if len(names) == 0 {
		return "", nil, nil, nil
	}
	return expr, names, values, nil
}
