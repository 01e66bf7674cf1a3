package config

import (
	"log"
	"os"

	"github.com/BurntSushi/toml"
)

type MainConfig struct {
	AppName   string `toml:"appName"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	EnableTLS bool   `toml:"enableTLS"`
}

type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

type LogConfig struct {
	LogPath string `toml:"logPath"`
	Level   string `toml:"level"`
}

type JwtConfig struct {
	Key         string `toml:"key"`
	ExpireHours int    `toml:"expireHours"`
	Issuer      string `toml:"issuer"`
}

type MilvusConfig struct {
	Address        string `toml:"address"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	DBName         string `toml:"dbName"`
	CollectionName string `toml:"collectionName"`
	VectorDim      int    `toml:"vectorDim"`
	MetricType     string `toml:"metricType"`
}

type AIEmbeddingConfig struct {
	Provider        string `toml:"provider"`
	APIKey          string `toml:"apiKey"`
	BaseURL         string `toml:"baseURL"`
	Model           string `toml:"model"`
	Dimensions      int    `toml:"dimensions"`
	TimeoutSeconds  int    `toml:"timeoutSeconds"`
	RetryTimes      int    `toml:"retryTimes"`
	SubBatchSize    int    `toml:"subBatchSize"`
	MaxInputRunes   int    `toml:"maxInputRunes"`
	ByAzure         bool   `toml:"byAzure"`
	AzureAPIVersion string `toml:"azureApiVersion"`
}

type AIConfig struct {
	Embedding AIEmbeddingConfig `toml:"embedding"`
}

// QualityConfig tunes the chunk quality scorer.
type QualityConfig struct {
	MinScore       float64 `toml:"minScore"`
	MinChars       int     `toml:"minChars"`
	MinTokens      int     `toml:"minTokens"`
	ExpectedTokens int     `toml:"expectedTokens"`
}

// ChunkingConfig tunes the default chunker, sizes in tokens.
type ChunkingConfig struct {
	ChunkSize    int `toml:"chunkSize"`
	ChunkOverlap int `toml:"chunkOverlap"`
}

// IndexConfig groups the batch-indexing tunables.
type IndexConfig struct {
	BatchSize         int            `toml:"batchSize"`
	ThrottleMs        int            `toml:"throttleMs"`
	ParentSourceTypes []string       `toml:"parentSourceTypes"`
	Quality           QualityConfig  `toml:"quality"`
	Chunking          ChunkingConfig `toml:"chunking"`
}

// ReconcileConfig groups the vector reconciliation tunables.
type ReconcileConfig struct {
	AuditDir       string   `toml:"auditDir"`
	ScrollPageSize int      `toml:"scrollPageSize"`
	LegacyIDModes  []string `toml:"legacyIDModes"`
	LockTTLMinutes int      `toml:"lockTTLMinutes"`
}

type RedisConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"poolSize"`
	MinIdleConns int    `toml:"minIdleConns"`
}

type Config struct {
	MainConfig      `toml:"mainConfig"`
	MysqlConfig     `toml:"mysqlConfig"`
	JwtConfig       `toml:"jwtConfig"`
	MilvusConfig    `toml:"milvusConfig"`
	AIConfig        `toml:"aiConfig"`
	LogConfig       `toml:"logConfig"`
	IndexConfig     `toml:"indexConfig"`
	ReconcileConfig `toml:"reconcileConfig"`
	RedisConfig     `toml:"redisConfig"`
}

var config *Config

func LoadConfig() error {
	configPath := os.Getenv("CASEVAULT_CONFIG")
	if configPath == "" {
		configPath = "configs/config_local.toml"
	}
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		log.Printf("load config failed: %v, falling back to defaults", err)
		return err
	}
	return nil
}

func GetConfig() *Config {
	if config == nil {
		config = new(Config)
		_ = LoadConfig()
	}
	return config
}
