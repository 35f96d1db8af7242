package store

import (
	"fmt"
	"strings"

	"github.com/dynabridge/dynabridge/pkg/config"
	"github.com/dynabridge/dynabridge/pkg/observability/logger"
	"github.com/dynabridge/dynabridge/pkg/store/dynamodb"
)

// NewDynamoDBAdapter selects and initializes the storage adapter from config.
func NewDynamoDBAdapter(cfg config.DatabaseConfig, log logger.Logger) (*dynamodb.Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case config.DatabaseTypeDynamoDB:
		return dynamodb.NewAdapter(dynamodb.Config{
			Region:           cfg.Region,
			Endpoint:         cfg.Endpoint,
			AccessKeyID:      cfg.AccessKeyID,
			SecretAccessKey:  cfg.SecretAccessKey,
			SessionToken:     cfg.SessionToken,
			OperationTimeout: cfg.OperationTimeout,
		}, log)
	default:
		return nil, fmt.Errorf("unsupported database.type %q (supported: %s)", cfg.Type, config.DatabaseTypeDynamoDB)
	}
}
