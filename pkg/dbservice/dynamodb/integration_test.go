package dynamodb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dynabridge/dynabridge/pkg/dbservice"
	"github.com/dynabridge/dynabridge/pkg/observability/logger"
	dynamostore "github.com/dynabridge/dynabridge/pkg/store/dynamodb"
	"github.com/dynabridge/dynabridge/pkg/testutil"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDynamoDBAdapter_Integration exercises the full adapter lifecycle
// against a real DynamoDB Local instance using testcontainers.
func TestDynamoDBAdapter_Integration(t *testing.T) {
	testutil.RequireIntegration(t)

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "amazon/dynamodb-local:latest",
			ExposedPorts: []string{"8000/tcp"},
			WaitingFor:   wait.ForListeningPort("8000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start DynamoDB Local container: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "8000/tcp")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}
	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())

	log, err := logger.NewZapLogger(logger.Config{
		Level:  logger.InfoLevel,
		Format: logger.JSONFormat,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	store, err := dynamostore.NewAdapter(dynamostore.Config{
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "local",
		SecretAccessKey: "local",
	}, log)
	if err != nil {
		t.Fatalf("Failed to create store adapter: %v", err)
	}
	defer store.Close()

	adapter, err := New(Config{
		Table:       "integration_items",
		CreateTable: true,
	}, store, log)
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}

	if err := adapter.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer adapter.Disconnect(ctx)

	t.Run("ConnectIsIdempotent", func(t *testing.T) {
		if err := adapter.Connect(ctx); err != nil {
			t.Fatalf("Second connect failed: %v", err)
		}
	})

	t.Run("InsertAndFindByID", func(t *testing.T) {
		created, err := adapter.Insert(ctx, dbservice.Entity{
			"id":     "item-1",
			"status": "open",
			"score":  3,
		})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if created["id"] != "item-1" {
			t.Errorf("Expected created id item-1, got %v", created["id"])
		}

		found, err := adapter.FindByID(ctx, "item-1")
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if found == nil || found["status"] != "open" {
			t.Errorf("Expected stored entity, got %v", found)
		}
	})

	t.Run("FindByIDAbsent", func(t *testing.T) {
		found, err := adapter.FindByID(ctx, "no-such-item")
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if found != nil {
			t.Errorf("Expected nil for absent item, got %v", found)
		}
	})

	t.Run("InsertManyAndFindByIDs", func(t *testing.T) {
		batch := []dbservice.Entity{
			{"id": "bulk-1", "status": "open"},
			{"id": "bulk-2", "status": "open"},
			{"id": "bulk-3", "status": "closed"},
		}
		if _, err := adapter.InsertMany(ctx, batch); err != nil {
			t.Fatalf("InsertMany failed: %v", err)
		}

		found, err := adapter.FindByIDs(ctx, []any{"bulk-1", "bulk-3"})
		if err != nil {
			t.Fatalf("FindByIDs failed: %v", err)
		}
		if len(found) != 2 {
			t.Errorf("Expected 2 entities, got %d", len(found))
		}
	})

	t.Run("FindWithQueryFilter", func(t *testing.T) {
		found, err := adapter.Find(ctx, dbservice.Filter{
			Query: map[string]any{"status": "closed"},
		})
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		for _, entity := range found {
			if entity["status"] != "closed" {
				t.Errorf("Expected only closed entities, got %v", entity)
			}
		}
	})

	t.Run("FindOneCardinality", func(t *testing.T) {
		found, err := adapter.FindOne(ctx, dbservice.Filter{
			Query: map[string]any{"status": "open"},
		})
		if err != nil {
			t.Fatalf("FindOne failed: %v", err)
		}
		if found == nil {
			t.Fatal("Expected one match")
		}

		absent, err := adapter.FindOne(ctx, dbservice.Filter{
			Query: map[string]any{"status": "no-such-status"},
		})
		if err != nil {
			t.Fatalf("FindOne failed: %v", err)
		}
		if absent != nil {
			t.Errorf("Expected nil for no match, got %v", absent)
		}
	})

	t.Run("CountMatchesFilter", func(t *testing.T) {
		total, err := adapter.Count(ctx, dbservice.Filter{})
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		closed, err := adapter.Count(ctx, dbservice.Filter{
			Query: map[string]any{"status": "closed"},
		})
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if closed <= 0 || closed > total {
			t.Errorf("Expected 0 < closed <= total, got closed=%d total=%d", closed, total)
		}
	})

	t.Run("UpdateByIDReturnsNewImage", func(t *testing.T) {
		updated, err := adapter.UpdateByID(ctx, "item-1", dbservice.Entity{
			"status": "resolved",
			"score":  9,
		})
		if err != nil {
			t.Fatalf("UpdateByID failed: %v", err)
		}
		if updated["status"] != "resolved" {
			t.Errorf("Expected updated status, got %v", updated["status"])
		}

		found, err := adapter.FindByID(ctx, "item-1")
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if found["status"] != "resolved" {
			t.Errorf("Expected persisted update, got %v", found["status"])
		}
	})

	t.Run("RemoveByIDReturnsPriorState", func(t *testing.T) {
		removed, err := adapter.RemoveByID(ctx, "item-1")
		if err != nil {
			t.Fatalf("RemoveByID failed: %v", err)
		}
		if removed == nil || removed["status"] != "resolved" {
			t.Errorf("Expected prior state, got %v", removed)
		}

		again, err := adapter.RemoveByID(ctx, "item-1")
		if err != nil {
			t.Fatalf("RemoveByID failed: %v", err)
		}
		if again != nil {
			t.Errorf("Expected nil for already-removed item, got %v", again)
		}
	})

	t.Run("ClearEmptiesTable", func(t *testing.T) {
		if err := adapter.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		n, err := adapter.Count(ctx, dbservice.Filter{})
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 0 {
			t.Errorf("Expected empty table, got %d items", n)
		}
	})
}
