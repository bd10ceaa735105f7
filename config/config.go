package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Supported storage backends
const (
	StorageFilesystem = "filesystem"
	StorageMemory     = "memory"
	StorageS3         = "s3"
	StorageDynamoDB   = "dynamodb"
	StorageMongoDB    = "mongodb"
	StorageRedis      = "redis"
	StorageBolt       = "bolt"
)

// EnvelopeOverhead is the body room BufferSize keeps beyond
// MaxCiphertextSize for the JSON framing, the iv and the other fields.
const EnvelopeOverhead = 4096

var storageTypes = []string{
	StorageFilesystem, StorageMemory, StorageS3, StorageDynamoDB,
	StorageMongoDB, StorageRedis, StorageBolt,
}

// Config holds all configuration for the cryptnote service
type Config struct {
	Port        int    `yaml:"port" json:"port"`
	StorageType string `yaml:"storage_type" json:"storage_type"`
	DataDir     string `yaml:"data_dir" json:"data_dir"`

	S3Bucket string `yaml:"s3_bucket" json:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix" json:"s3_prefix"`

	DynamoDBTable string `yaml:"dynamodb_table" json:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region" json:"aws_region"`

	MongoURI        string `yaml:"mongodb_uri" json:"-"`
	MongoDatabase   string `yaml:"mongodb_database" json:"mongodb_database"`
	MongoCollection string `yaml:"mongodb_collection" json:"mongodb_collection"`

	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"-"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix" json:"redis_prefix"`

	BoltPath string `yaml:"bolt_path" json:"bolt_path"`

	// MaxCiphertextSize bounds the ciphertext field; BufferSize bounds the
	// whole request body and must exceed it by at least EnvelopeOverhead.
	MaxCiphertextSize int64         `yaml:"max_ciphertext_size" json:"max_ciphertext_size"`
	BufferSize        int64         `yaml:"buffer_size" json:"buffer_size"`
	MaxClockSkew      time.Duration `yaml:"max_clock_skew" json:"max_clock_skew"`
	MaxIDAttempts     int           `yaml:"max_id_attempts" json:"max_id_attempts"`

	LogLevel      string `yaml:"log_level" json:"log_level"`
	EnableMetrics bool   `yaml:"enable_metrics" json:"enable_metrics"`

	Version    string `yaml:"-" json:"version"`
	BuildTime  string `yaml:"-" json:"build_time"`
	CommitHash string `yaml:"-" json:"commit_hash"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:              8080,
		StorageType:       StorageFilesystem,
		DataDir:           "./data",
		MongoDatabase:     "cryptnote",
		MongoCollection:   "notes",
		RedisAddr:         "localhost:6379",
		RedisPrefix:       "cryptnote:note:",
		BoltPath:          "./data/cryptnote.db",
		MaxCiphertextSize: 1400 * 1024,     // 1,433,600 bytes
		BufferSize:        2 * 1024 * 1024, // 2MB
		MaxClockSkew:      5 * time.Minute,
		MaxIDAttempts:     5,
		LogLevel:          "info",
		EnableMetrics:     true,
	}
}

// LoadConfig loads configuration from the process arguments and environment
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds the configuration from defaults, an optional YAML file,
// CRYPTNOTE_* environment variables and finally command-line flags.
func Load(args []string) (*Config, error) {
	cfg := Default()

	path := configPath(args)
	if path == "" {
		path = os.Getenv("CRYPTNOTE_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadFromEnv()

	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPath finds -config in args without parsing the rest, since the file
// has to be applied before flags override it.
func configPath(args []string) string {
	for i, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("CRYPTNOTE_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Port = port
		}
	}
	if val := os.Getenv("CRYPTNOTE_STORAGE_TYPE"); val != "" {
		c.StorageType = val
	}
	if val := os.Getenv("CRYPTNOTE_DATA_DIR"); val != "" {
		c.DataDir = val
	}

	if val := os.Getenv("CRYPTNOTE_S3_BUCKET"); val != "" {
		c.S3Bucket = val
	}
	if val := os.Getenv("CRYPTNOTE_S3_PREFIX"); val != "" {
		c.S3Prefix = val
	}
	if val := os.Getenv("CRYPTNOTE_DYNAMODB_TABLE"); val != "" {
		c.DynamoDBTable = val
	}
	if val := os.Getenv("AWS_REGION"); val != "" {
		c.AWSRegion = val
	}

	if val := os.Getenv("CRYPTNOTE_MONGODB_URI"); val != "" {
		c.MongoURI = val
	}
	if val := os.Getenv("CRYPTNOTE_MONGODB_DATABASE"); val != "" {
		c.MongoDatabase = val
	}
	if val := os.Getenv("CRYPTNOTE_MONGODB_COLLECTION"); val != "" {
		c.MongoCollection = val
	}

	if val := os.Getenv("CRYPTNOTE_REDIS_ADDR"); val != "" {
		c.RedisAddr = val
	}
	if val := os.Getenv("CRYPTNOTE_REDIS_PASSWORD"); val != "" {
		c.RedisPassword = val
	}
	if val := os.Getenv("CRYPTNOTE_REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			c.RedisDB = db
		}
	}
	if val := os.Getenv("CRYPTNOTE_REDIS_PREFIX"); val != "" {
		c.RedisPrefix = val
	}
	if val := os.Getenv("CRYPTNOTE_BOLT_PATH"); val != "" {
		c.BoltPath = val
	}

	if val := os.Getenv("CRYPTNOTE_MAX_CIPHERTEXT_SIZE"); val != "" {
		if size, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.MaxCiphertextSize = size
		}
	}
	if val := os.Getenv("CRYPTNOTE_BUFFER_SIZE"); val != "" {
		if size, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.BufferSize = size
		}
	}
	if val := os.Getenv("CRYPTNOTE_MAX_CLOCK_SKEW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.MaxClockSkew = d
		}
	}
	if val := os.Getenv("CRYPTNOTE_MAX_ID_ATTEMPTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.MaxIDAttempts = n
		}
	}

	if val := os.Getenv("CRYPTNOTE_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("CRYPTNOTE_ENABLE_METRICS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.EnableMetrics = b
		}
	}
}

// parseFlags binds flags to the already merged values, so only flags given
// on the command line change anything.
func (c *Config) parseFlags(args []string) error {
	fs := flag.NewFlagSet("cryptnote", flag.ContinueOnError)

	fs.String("config", "", "Path to a YAML config file")
	fs.IntVar(&c.Port, "port", c.Port, "Port to listen on")
	fs.StringVar(&c.StorageType, "storage", c.StorageType, "Storage backend: "+strings.Join(storageTypes, ", "))
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "Directory for the filesystem backend")
	fs.StringVar(&c.S3Bucket, "s3-bucket", c.S3Bucket, "S3 bucket")
	fs.StringVar(&c.S3Prefix, "s3-prefix", c.S3Prefix, "S3 key prefix")
	fs.StringVar(&c.DynamoDBTable, "dynamodb-table", c.DynamoDBTable, "DynamoDB table")
	fs.StringVar(&c.AWSRegion, "aws-region", c.AWSRegion, "AWS region override")
	fs.StringVar(&c.MongoURI, "mongodb-uri", c.MongoURI, "MongoDB connection URI")
	fs.StringVar(&c.MongoDatabase, "mongodb-database", c.MongoDatabase, "MongoDB database")
	fs.StringVar(&c.MongoCollection, "mongodb-collection", c.MongoCollection, "MongoDB collection")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")
	fs.StringVar(&c.RedisPrefix, "redis-prefix", c.RedisPrefix, "Redis key prefix")
	fs.StringVar(&c.BoltPath, "bolt-path", c.BoltPath, "Path to the bbolt database file")
	fs.Int64Var(&c.MaxCiphertextSize, "max-ciphertext-size", c.MaxCiphertextSize, "Maximum ciphertext length in bytes")
	fs.Int64Var(&c.BufferSize, "buffer-size", c.BufferSize, "Maximum request body size in bytes")
	fs.DurationVar(&c.MaxClockSkew, "max-clock-skew", c.MaxClockSkew, "Accepted client createdAt skew (negative trusts the client)")
	fs.IntVar(&c.MaxIDAttempts, "max-id-attempts", c.MaxIDAttempts, "Attempts to mint an unused note id")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level")
	fs.BoolVar(&c.EnableMetrics, "metrics", c.EnableMetrics, "Expose /metrics")

	return fs.Parse(args)
}

// Validate checks the merged configuration
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.StorageType {
	case StorageFilesystem:
		if c.DataDir == "" {
			return fmt.Errorf("data_dir is required for filesystem storage")
		}
	case StorageMemory:
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("s3_bucket is required for s3 storage")
		}
	case StorageDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("dynamodb_table is required for dynamodb storage")
		}
	case StorageMongoDB:
		if c.MongoURI == "" {
			return fmt.Errorf("mongodb_uri is required for mongodb storage")
		}
	case StorageRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for redis storage")
		}
	case StorageBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("bolt_path is required for bolt storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (supported: %s)", c.StorageType, strings.Join(storageTypes, ", "))
	}

	if c.MaxCiphertextSize <= 0 {
		return fmt.Errorf("max_ciphertext_size must be positive")
	}
	if c.BufferSize < c.MaxCiphertextSize+EnvelopeOverhead {
		return fmt.Errorf("buffer_size must be at least max_ciphertext_size + %d", EnvelopeOverhead)
	}
	if c.MaxIDAttempts < 1 {
		return fmt.Errorf("max_id_attempts must be at least 1")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Addr is the listen address for server mode
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
