package initial

import (
	"context"
	"fmt"
	"strings"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"

	"CaseVault/internal/config"
)

var MilvusClient mclient.Client

// InitMilvus connects to the vector database and ensures the configured
// database exists. Collection bootstrap lives with the index implementation,
// which knows the schema.
func InitMilvus(ctx context.Context) error {
	conf := config.GetConfig()
	addr := strings.TrimSpace(conf.MilvusConfig.Address)
	if addr == "" {
		return fmt.Errorf("milvus address is not configured")
	}
	dbName := strings.TrimSpace(conf.MilvusConfig.DBName)
	if dbName == "" {
		dbName = "casevault"
	}

	username := strings.TrimSpace(conf.MilvusConfig.Username)
	password := strings.TrimSpace(conf.MilvusConfig.Password)

	defaultCli, err := mclient.NewClient(ctx, mclient.Config{
		Address:  addr,
		Username: username,
		Password: password,
		DBName:   "default",
	})
	if err != nil {
		return fmt.Errorf("connect milvus: %w", err)
	}

	dbs, err := defaultCli.ListDatabases(ctx)
	if err != nil {
		_ = defaultCli.Close()
		return fmt.Errorf("list milvus databases: %w", err)
	}
	exists := false
	for _, db := range dbs {
		if db.Name == dbName {
			exists = true
			break
		}
	}
	if !exists {
		if err := defaultCli.CreateDatabase(ctx, dbName); err != nil {
			_ = defaultCli.Close()
			return fmt.Errorf("create milvus database %s: %w", dbName, err)
		}
	}
	_ = defaultCli.Close()

	cli, err := mclient.NewClient(ctx, mclient.Config{
		Address:  addr,
		Username: username,
		Password: password,
		DBName:   dbName,
	})
	if err != nil {
		return fmt.Errorf("connect milvus database %s: %w", dbName, err)
	}

	MilvusClient = cli
	return nil
}
