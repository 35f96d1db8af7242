// Package dbservice defines the generic database-service contract a hosting
// framework programs against. Backends implement Adapter; the framework owns
// entity schemas and lifecycles, the adapter only translates calls.
package dbservice

import (
	"context"
	"errors"
)

// Entity is an opaque attribute map. The adapter never validates or
// constrains its shape.
type Entity map[string]any

// Filter carries request-scoped query parameters. Backends honor the fields
// they can express; unsupported fields are documented per backend.
type Filter struct {
	Limit        int
	Offset       int
	Sort         string
	Search       string
	SearchFields []string
	// Query holds equality terms: attribute name to required value.
	Query map[string]any
}

// Key identifies a single item. Range is only set for composite-key tables.
type Key struct {
	Hash  any
	Range any
}

// Serializable is the capability interface for store-specific entity wrappers
// that know how to render themselves as a plain attribute map.
type Serializable interface {
	ToObject() Entity
}

// Sentinel errors shared by adapter implementations.
var (
	// ErrRangeKeyRequired is returned when a composite-key table is
	// addressed with a bare hash value. Pass a Key with both parts instead.
	ErrRangeKeyRequired = errors.New("dbservice: range key value required for composite-key table")

	// ErrEmptyUpdate is returned when an update carries no changes.
	ErrEmptyUpdate = errors.New("dbservice: update requires at least one changed field")
)

// Adapter is the operation contract between the hosting framework's database
// service and a concrete backend. Absent results are (nil, nil), never errors.
type Adapter interface {
	// Connect prepares the backend for use, optionally provisioning the
	// backing table. Safe to call when the table already exists.
	Connect(ctx context.Context) error
	// Disconnect releases the adapter. Always succeeds.
	Disconnect(ctx context.Context) error

	Find(ctx context.Context, f Filter) ([]Entity, error)
	FindOne(ctx context.Context, f Filter) (Entity, error)
	FindByID(ctx context.Context, id any) (Entity, error)
	FindByIDs(ctx context.Context, ids []any) ([]Entity, error)
	Count(ctx context.Context, f Filter) (int64, error)

	Insert(ctx context.Context, entity Entity) (Entity, error)
	InsertMany(ctx context.Context, entities []Entity) ([]Entity, error)
	UpdateByID(ctx context.Context, id any, changes Entity) (Entity, error)
	RemoveByID(ctx context.Context, id any) (Entity, error)
	Clear(ctx context.Context) error

	// EntityToObject normalizes a backend-specific entity value into a plain
	// attribute map.
	EntityToObject(v any) Entity
}

// Clone returns a shallow copy of e. Mutating the copy's top-level keys does
// not affect the original.
func (e Entity) Clone() Entity {
	if e == nil {
		return nil
	}
	out := make(Entity, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
