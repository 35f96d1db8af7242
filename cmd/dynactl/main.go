// Command dynactl is the operational CLI for DynamoDB-backed database
// services: table provisioning, item inspection, and connectivity checks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dynabridge/dynabridge/pkg/config"
	"github.com/dynabridge/dynabridge/pkg/dbservice"
	dynamoservice "github.com/dynabridge/dynabridge/pkg/dbservice/dynamodb"
	"github.com/dynabridge/dynabridge/pkg/observability/logger"
	dynamostore "github.com/dynabridge/dynabridge/pkg/store/dynamodb"
	"github.com/dynabridge/dynabridge/pkg/version"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Missing .env is fine, environment wins anyway.
	_ = godotenv.Load()

	rootCmd := newRootCommand()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runtime struct {
	cfg     *config.Config
	log     *logger.ZapLogger
	store   *dynamostore.Adapter
	adapter *dynamoservice.Adapter
}

func (r *runtime) close() {
	if r.store != nil {
		_ = r.store.Close()
	}
	if r.log != nil {
		_ = r.log.Sync()
	}
}

func newRootCommand() *cobra.Command {
	var cfgPath string
	var envPrefix string

	rootCmd := &cobra.Command{
		Use:           "dynactl",
		Short:         "Operational CLI for DynamoDB database services",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config-file", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&envPrefix, "env-prefix", "APP", "environment variable prefix")

	load := func(ctx context.Context, forceCreate bool) (*runtime, error) {
		loader := config.NewViperLoader(cfgPath, envPrefix)
		cfg, err := loader.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}

		log, err := logger.NewZapLogger(logger.Config{
			Level:  logger.LogLevel(cfg.Observability.LogLevel),
			Format: logger.LogFormat(cfg.Observability.LogFormat),
		})
		if err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}

		store, err := dynamostore.NewAdapter(dynamostore.Config{
			Region:           cfg.Database.Region,
			Endpoint:         cfg.Database.Endpoint,
			AccessKeyID:      cfg.Database.AccessKeyID,
			SecretAccessKey:  cfg.Database.SecretAccessKey,
			SessionToken:     cfg.Database.SessionToken,
			OperationTimeout: cfg.Database.OperationTimeout,
		}, log)
		if err != nil {
			_ = log.Sync()
			return nil, fmt.Errorf("create store adapter: %w", err)
		}

		indexes := make([]dynamoservice.SecondaryIndex, 0, len(cfg.Database.Indexes))
		for _, idx := range cfg.Database.Indexes {
			indexes = append(indexes, dynamoservice.SecondaryIndex{
				Name:     idx.Name,
				HashKey:  idx.HashKey,
				RangeKey: idx.RangeKey,
			})
		}
		adapter, err := dynamoservice.New(dynamoservice.Config{
			Table:         cfg.Database.Table,
			HashKey:       cfg.Database.HashKey,
			RangeKey:      cfg.Database.RangeKey,
			CreateTable:   cfg.Database.CreateTable || forceCreate,
			ReadCapacity:  cfg.Database.ReadCapacity,
			WriteCapacity: cfg.Database.WriteCapacity,
			Indexes:       indexes,
		}, store, log)
		if err != nil {
			_ = store.Close()
			_ = log.Sync()
			return nil, fmt.Errorf("create database service adapter: %w", err)
		}
		if err := adapter.Connect(ctx); err != nil {
			_ = store.Close()
			_ = log.Sync()
			return nil, fmt.Errorf("connect: %w", err)
		}

		return &runtime{cfg: cfg, log: log, store: store, adapter: adapter}, nil
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Current("dynactl")
			fmt.Printf("Service:    %s\n", info.Service)
			fmt.Printf("Version:    %s\n", info.Version)
			fmt.Printf("Commit:     %s\n", info.Commit)
			fmt.Printf("Build Time: %s\n", info.BuildTime)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "healthcheck",
		Short: "Check connectivity to DynamoDB",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.store.HealthCheck(cmd.Context()); err != nil {
				return fmt.Errorf("healthcheck failed: %w", err)
			}
			fmt.Println("ok")
			return nil
		},
	})

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewViperLoader(cfgPath, envPrefix)
			if _, err := loader.Load(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			fmt.Println("configuration is valid")
			return nil
		},
	})
	rootCmd.AddCommand(configCmd)

	tableCmd := &cobra.Command{
		Use:   "table",
		Short: "Table management commands",
	}
	tableCmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create the configured table if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Connect provisions the table, existing tables are tolerated.
			rt, err := load(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer rt.close()

			fmt.Printf("table %s ready\n", rt.cfg.Database.Table)
			return nil
		},
	})
	tableCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every item in the configured table",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.adapter.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear failed: %w", err)
			}
			fmt.Println("table cleared")
			return nil
		},
	})
	rootCmd.AddCommand(tableCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "get <id> [range]",
		Short: "Fetch one item by primary key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.close()

			var id any = args[0]
			if len(args) == 2 {
				id = dbservice.Key{Hash: args[0], Range: args[1]}
			}
			entity, err := rt.adapter.FindByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			if entity == nil {
				return fmt.Errorf("item %s not found", args[0])
			}
			return printJSON(entity)
		},
	})

	putCmd := &cobra.Command{
		Use:   "put <json>",
		Short: "Store one item from a JSON document",
		Long:  "Store one item. When the document has no hash key attribute a UUID is generated for it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.close()

			var entity dbservice.Entity
			if err := json.Unmarshal([]byte(args[0]), &entity); err != nil {
				return fmt.Errorf("invalid JSON document: %w", err)
			}
			hashKey := rt.cfg.Database.HashKey
			if _, ok := entity[hashKey]; !ok {
				entity[hashKey] = uuid.NewString()
			}
			created, err := rt.adapter.Insert(cmd.Context(), entity)
			if err != nil {
				return err
			}
			return printJSON(created)
		},
	}
	rootCmd.AddCommand(putCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "delete <id> [range]",
		Short: "Delete one item by primary key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.close()

			var id any = args[0]
			if len(args) == 2 {
				id = dbservice.Key{Hash: args[0], Range: args[1]}
			}
			removed, err := rt.adapter.RemoveByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			if removed == nil {
				fmt.Println("nothing deleted")
				return nil
			}
			return printJSON(removed)
		},
	})

	var scanLimit int
	var scanQuery []string
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "List items, optionally filtered by equality terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.close()

			filter, err := filterFromFlags(scanLimit, scanQuery)
			if err != nil {
				return err
			}
			entities, err := rt.adapter.Find(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printJSON(entities)
		},
	}
	scanCmd.Flags().IntVar(&scanLimit, "limit", 0, "maximum number of items (0 = no limit)")
	scanCmd.Flags().StringSliceVar(&scanQuery, "query", nil, "equality term key=value (repeatable)")
	rootCmd.AddCommand(scanCmd)

	var countQuery []string
	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Count items matching equality terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.close()

			filter, err := filterFromFlags(0, countQuery)
			if err != nil {
				return err
			}
			n, err := rt.adapter.Count(cmd.Context(), filter)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
	countCmd.Flags().StringSliceVar(&countQuery, "query", nil, "equality term key=value (repeatable)")
	rootCmd.AddCommand(countCmd)

	return rootCmd
}

func filterFromFlags(limit int, terms []string) (dbservice.Filter, error) {
	filter := dbservice.Filter{Limit: limit}
	if len(terms) == 0 {
		return filter, nil
	}
	filter.Query = make(map[string]any, len(terms))
	for _, term := range terms {
		key, value, ok := strings.Cut(term, "=")
		if !ok || key == "" {
			return dbservice.Filter{}, fmt.Errorf("invalid query term %q, expected key=value", term)
		}
		filter.Query[key] = value
	}
	return filter, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
