package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/johnwmail/cryptnote/config"
)

// NewStore creates the storage backend selected by cfg.StorageType
func NewStore(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	logger := log.With().Str("storage", cfg.StorageType).Logger()

	switch cfg.StorageType {
	case config.StorageFilesystem:
		logger.Info().Str("data_dir", cfg.DataDir).Msg("Using filesystem storage")
		return asStore(NewFilesystemStore(cfg.DataDir))

	case config.StorageMemory:
		logger.Warn().Msg("Using in-memory storage; notes are lost on restart")
		return NewMemoryStore(), nil

	case config.StorageS3:
		logger.Info().Str("bucket", cfg.S3Bucket).Str("prefix", cfg.S3Prefix).Msg("Using S3 storage")
		return asStore(NewS3Store(ctx, cfg.S3Bucket, cfg.S3Prefix))

	case config.StorageDynamoDB:
		logger.Info().Str("table", cfg.DynamoDBTable).Msg("Using DynamoDB storage")
		return asStore(NewDynamoStore(ctx, cfg.DynamoDBTable, cfg.AWSRegion))

	case config.StorageMongoDB:
		logger.Info().
			Str("database", cfg.MongoDatabase).
			Str("collection", cfg.MongoCollection).
			Msg("Using MongoDB storage")
		return asStore(NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection))

	case config.StorageRedis:
		logger.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("Using Redis storage")
		return asStore(NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.RedisPrefix))

	case config.StorageBolt:
		logger.Info().Str("path", cfg.BoltPath).Msg("Using bbolt storage")
		return asStore(OpenBoltStore(cfg.BoltPath))

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}

// asStore keeps a failed constructor's typed nil out of the interface
func asStore[S BlobStore](store S, err error) (BlobStore, error) {
	if err != nil {
		return nil, err
	}
	return store, nil
}
