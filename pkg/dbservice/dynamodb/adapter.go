// Package dynamodb implements the generic database-service contract on top
// of AWS DynamoDB. Every operation is a single translated request against the
// backing client; errors propagate unmodified.
package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dynabridge/dynabridge/pkg/dbservice"
	"github.com/dynabridge/dynabridge/pkg/observability/logger"
	"github.com/dynabridge/dynabridge/pkg/observability/metrics"
	"github.com/dynabridge/dynabridge/pkg/observability/tracing"
	dynamostore "github.com/dynabridge/dynabridge/pkg/store/dynamodb"
)

// batchSize is the DynamoDB BatchWriteItem request limit.
const batchSize = 25

// batchDrainPasses bounds resubmission of unprocessed batch items. This is
// part of completing one logical bulk request, not a failure retry policy.
const batchDrainPasses = 3

// Client is the minimal DynamoDB execution contract the adapter depends on.
// *store/dynamodb.Adapter satisfies it; tests substitute fakes.
type Client interface {
	PutItem(ctx context.Context, input *awsdynamodb.PutItemInput) (*awsdynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, input *awsdynamodb.GetItemInput) (*awsdynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, input *awsdynamodb.UpdateItemInput) (*awsdynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, input *awsdynamodb.DeleteItemInput) (*awsdynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, input *awsdynamodb.ScanInput) (*awsdynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, input *awsdynamodb.BatchWriteItemInput) (*awsdynamodb.BatchWriteItemOutput, error)
	CreateTable(ctx context.Context, input *awsdynamodb.CreateTableInput) (*awsdynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, input *awsdynamodb.DescribeTableInput) (*awsdynamodb.DescribeTableOutput, error)
}

var _ Client = (*dynamostore.Adapter)(nil)

// SecondaryIndex describes a global secondary index applied during optional
// table creation.
type SecondaryIndex struct {
	Name     string
	HashKey  string
	RangeKey string
}

// Config holds the table binding for one adapter instance.
type Config struct {
	// Table is the backing table name. Required.
	Table string
	// HashKey names the partition key attribute. Defaults to "id".
	HashKey string
	// RangeKey names the sort key attribute for composite-key tables.
	RangeKey string
	// CreateTable requests table creation during Connect. An existing table
	// is treated as success.
	CreateTable   bool
	ReadCapacity  int64
	WriteCapacity int64
	Indexes       []SecondaryIndex
}

// Adapter implements dbservice.Adapter against DynamoDB. The client handle
// and key names are read-only after Connect; only the connected flag is
// guarded.
type Adapter struct {
	cfg     Config
	client  Client
	logger  logger.Logger
	metrics *metrics.StoreMetrics

	mu        sync.RWMutex
	connected bool
}

var _ dbservice.Adapter = (*Adapter)(nil)

// Option configures optional adapter collaborators.
type Option func(*Adapter)

// WithMetrics attaches a store metrics collector observed around every
// operation.
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// Cosa fa: costruisce l'adapter del database service legato a una tabella DynamoDB.
// Cosa NON fa: non apre connessioni; la tabella viene toccata solo da Connect.
// Esempio minimo: adp, err := dynamodb.New(cfg, store, log)
func New(cfg Config, client Client, log logger.Logger, opts ...Option) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("dynamodb client is required")
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("table name is required")
	}
	if cfg.HashKey == "" {
		cfg.HashKey = "id"
	}
	if log == nil {
		log = logger.Nop()
	}

	a := &Adapter{cfg: cfg, client: client, logger: log.With("table", cfg.Table)}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Connect provisions the table when requested and marks the adapter ready.
// A table that already exists is success, any other creation error surfaces.
// Without CreateTable the backing table's existence is verified instead.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.cfg.CreateTable {
		if err := a.ensureTable(ctx); err != nil {
			return err
		}
	} else {
		_, err := a.client.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{
			TableName: aws.String(a.cfg.Table),
		})
		if err != nil {
			return fmt.Errorf("table %s is not available: %w", a.cfg.Table, err)
		}
	}

	a.mu.Lock()
	a.connected = true
	a.mu.Unlock()

	a.logger.Info("database service adapter connected",
		"hash_key", a.cfg.HashKey, "range_key", a.cfg.RangeKey)
	return nil
}

// Disconnect marks the adapter disconnected. It never fails.
func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	a.connected = false
	a.mu.Unlock()
	return nil
}

// Connected reports whether Connect has completed.
func (a *Adapter) Connected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.connected
}

func (a *Adapter) ensureTable(ctx context.Context) error {
	input := &awsdynamodb.CreateTableInput{
		TableName:            aws.String(a.cfg.Table),
		AttributeDefinitions: a.attributeDefinitions(),
		KeySchema:            keySchema(a.cfg.HashKey, a.cfg.RangeKey),
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(capacityOrDefault(a.cfg.ReadCapacity)),
			WriteCapacityUnits: aws.Int64(capacityOrDefault(a.cfg.WriteCapacity)),
		},
	}

	for _, idx := range a.cfg.Indexes {
		input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName: aws.String(idx.Name),
			KeySchema: keySchema(idx.HashKey, idx.RangeKey),
			Projection: &types.Projection{
				ProjectionType: types.ProjectionTypeAll,
			},
			ProvisionedThroughput: &types.ProvisionedThroughput{
				ReadCapacityUnits:  aws.Int64(capacityOrDefault(a.cfg.ReadCapacity)),
				WriteCapacityUnits: aws.Int64(capacityOrDefault(a.cfg.WriteCapacity)),
			},
		})
	}

	_, err := a.client.CreateTable(ctx, input)
	if err != nil {
		if dynamostore.IsTableExistsError(err) {
			a.logger.Debug("table already exists, continuing")
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", a.cfg.Table, err)
	}

	a.logger.Info("table created")
	return nil
}

// attributeDefinitions declares every attribute referenced by a key schema.
// Key attributes are assumed string-typed, the common case for identifiers.
func (a *Adapter) attributeDefinitions() []types.AttributeDefinition {
	seen := map[string]bool{}
	var defs []types.AttributeDefinition

	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	add(a.cfg.HashKey)
	add(a.cfg.RangeKey)
	for _, idx := range a.cfg.Indexes {
		add(idx.HashKey)
		add(idx.RangeKey)
	}
	return defs
}

func keySchema(hashKey, rangeKey string) []types.KeySchemaElement {
	schema := []types.KeySchemaElement{{
		AttributeName: aws.String(hashKey),
		KeyType:       types.KeyTypeHash,
	}}
	if rangeKey != "" {
		schema = append(schema, types.KeySchemaElement{
			AttributeName: aws.String(rangeKey),
			KeyType:       types.KeyTypeRange,
		})
	}
	return schema
}

func capacityOrDefault(v int64) int64 {
	if v <= 0 {
		return 5
	}
	return v
}

// Find executes a filtered scan and returns the matched entities.
func (a *Adapter) Find(ctx context.Context, f dbservice.Filter) ([]dbservice.Entity, error) {
	ctx, done := a.instrument(ctx, "find")
	cursor, err := a.CreateCursor(f)
	if err != nil {
		done(err)
		return nil, err
	}
	items, err := cursor.All(ctx)
	done(err)
	return items, err
}

// FindOne delegates to Find with the limit forced to one.
func (a *Adapter) FindOne(ctx context.Context, f dbservice.Filter) (dbservice.Entity, error) {
	f.Limit = 1
	items, err := a.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// FindByID fetches one entity by primary key. Absent items are (nil, nil).
func (a *Adapter) FindByID(ctx context.Context, id any) (dbservice.Entity, error) {
	ctx, done := a.instrument(ctx, "find_by_id")

	key, err := a.keyFor(id)
	if err != nil {
		done(err)
		return nil, err
	}

	out, err := a.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(a.cfg.Table),
		Key:       key,
	})
	if err != nil {
		done(err)
		return nil, err
	}
	done(nil)

	if out.Item == nil {
		return nil, nil
	}
	return unmarshalItem(out.Item)
}

// FindByIDs scans on hash-key membership in the given set. This is a full
// table scan, not an indexed batch get, matching the contract's semantics
// for arbitrarily sized ID lists.
func (a *Adapter) FindByIDs(ctx context.Context, ids []any) ([]dbservice.Entity, error) {
	ctx, done := a.instrument(ctx, "find_by_ids")

	if len(ids) == 0 {
		done(nil)
		return nil, nil
	}

	expr, names, values, err := buildMembershipExpression(a.cfg.HashKey, ids)
	if err != nil {
		done(err)
		return nil, err
	}

	cursor := &Cursor{
		client: a.client,
		input: &awsdynamodb.ScanInput{
			TableName:                 aws.String(a.cfg.Table),
			FilterExpression:          aws.String(expr),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		},
	}
	items, err := cursor.All(ctx)
	done(err)
	return items, err
}

// Count returns the number of entities matching the filter using a
// COUNT-select scan.
func (a *Adapter) Count(ctx context.Context, f dbservice.Filter) (int64, error) {
	ctx, done := a.instrument(ctx, "count")

	f.Limit = 0 // count the whole match set
	cursor, err := a.CreateCursor(f)
	if err != nil {
		done(err)
		return 0, err
	}
	n, err := cursor.Count(ctx)
	done(err)
	return n, err
}

// Insert stores one entity unmodified and returns its created representation.
func (a *Adapter) Insert(ctx context.Context, entity dbservice.Entity) (dbservice.Entity, error) {
	ctx, done := a.instrument(ctx, "insert")

	created := entity.Clone()
	item, err := attributevalue.MarshalMap(map[string]any(created))
	if err != nil {
		err = fmt.Errorf("failed to marshal entity: %w", err)
		done(err)
		return nil, err
	}

	_, err = a.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(a.cfg.Table),
		Item:      item,
	})
	done(err)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// InsertMany stores a sequence of entities through batched writes.
// Unprocessed items are resubmitted within a bounded number of passes; a
// batch that never drains is reported as an error, not retried further.
func (a *Adapter) InsertMany(ctx context.Context, entities []dbservice.Entity) ([]dbservice.Entity, error) {
	ctx, done := a.instrument(ctx, "insert_many")

	created := make([]dbservice.Entity, 0, len(entities))
	var requests []types.WriteRequest
	for i, entity := range entities {
		clone := entity.Clone()
		item, err := attributevalue.MarshalMap(map[string]any(clone))
		if err != nil {
			err = fmt.Errorf("failed to marshal entity %d: %w", i, err)
			done(err)
			return nil, err
		}
		created = append(created, clone)
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	if err := a.writeBatches(ctx, requests); err != nil {
		done(err)
		return nil, err
	}
	done(nil)
	return created, nil
}

// UpdateByID applies the changed fields to the identified item and returns
// the new image. Key attributes inside changes address the item, they are
// never part of the update expression.
func (a *Adapter) UpdateByID(ctx context.Context, id any, changes dbservice.Entity) (dbservice.Entity, error) {
	ctx, done := a.instrument(ctx, "update_by_id")

	key, err := a.keyFor(id)
	if err != nil {
		done(err)
		return nil, err
	}

	expr, names, values, err := buildUpdateExpression(a.cfg.HashKey, a.cfg.RangeKey, changes)
	if err != nil {
		done(err)
		return nil, err
	}

	out, err := a.client.UpdateItem(ctx, &awsdynamodb.UpdateItemInput{
		TableName:                 aws.String(a.cfg.Table),
		Key:                       key,
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	done(err)
	if err != nil {
		return nil, err
	}
	return unmarshalItem(out.Attributes)
}

// RemoveByID deletes by primary key and returns the deleted item's prior
// state, or (nil, nil) when nothing was stored under the key.
func (a *Adapter) RemoveByID(ctx context.Context, id any) (dbservice.Entity, error) {
	ctx, done := a.instrument(ctx, "remove_by_id")

	key, err := a.keyFor(id)
	if err != nil {
		done(err)
		return nil, err
	}

	out, err := a.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName:    aws.String(a.cfg.Table),
		Key:          key,
		ReturnValues: types.ReturnValueAllOld,
	})
	done(err)
	if err != nil {
		return nil, err
	}
	if len(out.Attributes) == 0 {
		return nil, nil
	}
	return unmarshalItem(out.Attributes)
}

// Clear deletes every item in the table: a key-projection scan followed by
// batched deletes. DynamoDB has no single destroy-all request.
func (a *Adapter) Clear(ctx context.Context) error {
	ctx, done := a.instrument(ctx, "clear")

	projection := "#hk"
	names := map[string]string{"#hk": a.cfg.HashKey}
	if a.cfg.RangeKey != "" {
		projection += ", #rk"
		names["#rk"] = a.cfg.RangeKey
	}

	var requests []types.WriteRequest
	var startKey map[string]types.AttributeValue
	for {
		out, err := a.client.Scan(ctx, &awsdynamodb.ScanInput{
			TableName:                aws.String(a.cfg.Table),
			ProjectionExpression:     aws.String(projection),
			ExpressionAttributeNames: names,
			ExclusiveStartKey:        startKey,
		})
		if err != nil {
			done(err)
			return err
		}
		for _, item := range out.Items {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: item},
			})
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	err := a.writeBatches(ctx, requests)
	done(err)
	return err
}

// writeBatches submits write requests in chunks of the BatchWriteItem limit,
// draining unprocessed items within the bounded pass budget.
func (a *Adapter) writeBatches(ctx context.Context, requests []types.WriteRequest) error {
	for start := 0; start < len(requests); start += batchSize {
		end := start + batchSize
		if end > len(requests) {
			end = len(requests)
		}

		pending := requests[start:end]
		for pass := 0; len(pending) > 0; pass++ {
			if pass >= batchDrainPasses {
				return fmt.Errorf("batch write left %d unprocessed items after %d passes", len(pending), pass)
			}
			out, err := a.client.BatchWriteItem(ctx, &awsdynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{a.cfg.Table: pending},
			})
			if err != nil {
				return err
			}
			pending = out.UnprocessedItems[a.cfg.Table]
		}
	}
	return nil
}

// inOperandLimit is the DynamoDB cap on operands in one IN clause.
const inOperandLimit = 100

// buildMembershipExpression renders hash-key membership in the given ID set.
// The IN clause takes at most 100 operands, so larger sets become OR-joined
// groups within one expression.
func buildMembershipExpression(hashKey string, ids []any) (string, map[string]string, map[string]types.AttributeValue, error) {
	names := map[string]string{"#k": hashKey}
	values := make(map[string]types.AttributeValue, len(ids))

	var groups []string
	for start := 0; start < len(ids); start += inOperandLimit {
		end := start + inOperandLimit
		if end > len(ids) {
			end = len(ids)
		}

		group := "#k IN ("
		for i := start; i < end; i++ {
			av, err := attributevalue.Marshal(ids[i])
			if err != nil {
				return "", nil, nil, fmt.Errorf("failed to marshal id %d: %w", i, err)
			}
			placeholder := fmt.Sprintf(":id%d", i)
			values[placeholder] = av
			if i > start {
				group += ", "
			}
			group += placeholder
		}
		group += ")"
		groups = append(groups, group)
	}

	expr := strings.Join(groups, " OR ")
	return expr, names, values, nil
}

// keyFor translates an identifier into a DynamoDB key. Composite-key tables
// must be addressed with a dbservice.Key carrying both parts.
func (a *Adapter) keyFor(id any) (map[string]types.AttributeValue, error) {
	if k, ok := id.(dbservice.Key); ok {
		hashAV, err := attributevalue.Marshal(k.Hash)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal hash key: %w", err)
		}
		key := map[string]types.AttributeValue{a.cfg.HashKey: hashAV}

		if a.cfg.RangeKey != "" {
			if k.Range == nil {
				return nil, dbservice.ErrRangeKeyRequired
			}
			rangeAV, err := attributevalue.Marshal(k.Range)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal range key: %w", err)
			}
			key[a.cfg.RangeKey] = rangeAV
		}
		return key, nil
	}

	if a.cfg.RangeKey != "" {
		return nil, dbservice.ErrRangeKeyRequired
	}
	av, err := attributevalue.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal id: %w", err)
	}
	return map[string]types.AttributeValue{a.cfg.HashKey: av}, nil
}

// buildUpdateExpression renders a SET expression from the changed fields,
// skipping key attributes. Fields are emitted in sorted order so the
// expression is deterministic for a given change set.
func buildUpdateExpression(hashKey, rangeKey string, changes dbservice.Entity) (string, map[string]string, map[string]types.AttributeValue, error) {
	fields := make([]string, 0, len(changes))
	for field := range changes {
		if field == hashKey || field == rangeKey {
			continue
		}
		fields = append(fields, field)
	}
	if len(fields) == 0 {
		return "", nil, nil, dbservice.ErrEmptyUpdate
	}
	sort.Strings(fields)

	names := make(map[string]string, len(fields))
	values := make(map[string]types.AttributeValue, len(fields))
	expr := "SET "
	for i, field := range fields {
		av, err := attributevalue.Marshal(changes[field])
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to marshal field %q: %w", field, err)
		}
		namePlaceholder := fmt.Sprintf("#f%d", i)
		valuePlaceholder := fmt.Sprintf(":v%d", i)
		names[namePlaceholder] = field
		values[valuePlaceholder] = av
		if i > 0 {
			expr += ", "
		}
		expr += namePlaceholder + " = " + valuePlaceholder
	}
	return expr, names, values, nil
}

func (a *Adapter) instrument(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := tracing.StartStoreSpan(ctx, op, a.cfg.Table)
	start := time.Now()
	return ctx, func(err error) {
		if err != nil {
			tracing.RecordError(span, err)
		} else {
			tracing.RecordSuccess(span)
		}
		span.End()
		if a.metrics != nil {
			a.metrics.Observe(op, a.cfg.Table, start, err)
		}
	}
}
