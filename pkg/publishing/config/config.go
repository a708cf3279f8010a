// Package config assembles a publishing.Service from explicit configuration.
// Configuration is a value passed around, never process-global state, so
// tests can target several ledgers without cross-test interference.
package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwire/publishinghub/pkg/publishing"
	memorystore "github.com/inkwire/publishinghub/pkg/publishing/contentstore/memory"
	pinatastore "github.com/inkwire/publishinghub/pkg/publishing/contentstore/pinata"
	s3store "github.com/inkwire/publishinghub/pkg/publishing/contentstore/s3"
	memoryledger "github.com/inkwire/publishinghub/pkg/publishing/ledger/memory"
	postgresledger "github.com/inkwire/publishinghub/pkg/publishing/ledger/postgres"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:               "8080",
		Environment:        "development",
		LedgerType:         "memory",
		LedgerSchema:       "ledger",
		StorageType:        "memory",
		CatalogConcurrency: 8,
	}
}

// ServerConfig represents server configuration for the publishing hub service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Ledger configuration
	LedgerType   string // "memory", "postgres"
	LedgerURL    string // connection string when LedgerType is "postgres"
	LedgerSchema string // Postgres schema to use (default: ledger)

	// Content store configuration
	StorageType string // "memory", "s3", "pinata"
	Storage     StorageConfig

	// Identity verification
	JWTSecret string

	// Service options
	CatalogConcurrency int
}

// StorageConfig holds backend-specific content store settings.
type StorageConfig struct {
	// S3 / MinIO
	Region                 string
	Bucket                 string
	AccessKeyID            string
	SecretAccessKey        string
	Endpoint               string
	UsePathStyle           bool
	KeyPrefix              string
	CreateBucketIfNotExist bool

	// Pinata-compatible pinning service
	PinataAPIURL     string
	PinataGatewayURL string
	PinataAPIKey     string
	PinataSecretKey  string
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.LedgerType != "memory" && c.LedgerType != "postgres" {
		return errors.New("ledger_type must be 'memory' or 'postgres'")
	}
	if c.LedgerType == "postgres" && c.LedgerURL == "" {
		return errors.New("ledger_url is required when using postgres")
	}

	switch c.StorageType {
	case "memory":
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("bucket is required when using s3 storage")
		}
	case "pinata":
		if c.Storage.PinataAPIKey == "" || c.Storage.PinataSecretKey == "" {
			return errors.New("pinata api key and secret key are required when using pinata storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (publishing.Service, error) {
	ledger, err := c.buildLedger()
	if err != nil {
		return nil, fmt.Errorf("failed to build ledger: %w", err)
	}

	store, err := c.buildContentStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build content store: %w", err)
	}

	return publishing.New(
		publishing.WithLedger(ledger),
		publishing.WithContentStore(store),
		publishing.WithCatalogConcurrency(c.CatalogConcurrency),
	)
}

// buildLedger creates a Ledger based on the configuration
func (c *ServerConfig) buildLedger() (publishing.Ledger, error) {
	switch c.LedgerType {
	case "memory":
		return memoryledger.New(), nil
	case "postgres":
		cfg, err := pgxpool.ParseConfig(c.LedgerURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse LEDGER_URL: %w", err)
		}
		schema := c.LedgerSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return postgresledger.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported ledger type: %s", c.LedgerType)
	}
}

// buildContentStore creates a ContentStore based on the configuration
func (c *ServerConfig) buildContentStore() (publishing.ContentStore, error) {
	switch c.StorageType {
	case "memory":
		return memorystore.New(), nil
	case "s3":
		return s3store.New(s3store.Config{
			Region:                 c.Storage.Region,
			Bucket:                 c.Storage.Bucket,
			AccessKeyID:            c.Storage.AccessKeyID,
			SecretAccessKey:        c.Storage.SecretAccessKey,
			Endpoint:               c.Storage.Endpoint,
			UsePathStyle:           c.Storage.UsePathStyle,
			KeyPrefix:              c.Storage.KeyPrefix,
			CreateBucketIfNotExist: c.Storage.CreateBucketIfNotExist,
		})
	case "pinata":
		return pinatastore.New(pinatastore.Config{
			APIURL:     c.Storage.PinataAPIURL,
			GatewayURL: c.Storage.PinataGatewayURL,
			APIKey:     c.Storage.PinataAPIKey,
			SecretKey:  c.Storage.PinataSecretKey,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}
}

// PingLedger verifies connectivity to a Postgres ledger and optionally sets
// search_path for the session.
func PingLedger(ledgerURL, schema string) error {
	if ledgerURL == "" {
		return errors.New("ledger_url is required")
	}
	cfg, err := pgxpool.ParseConfig(ledgerURL)
	if err != nil {
		return fmt.Errorf("failed to parse LEDGER_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ledger ping failed: %w", err)
	}
	return nil
}
