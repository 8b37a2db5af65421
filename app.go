package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"site-cms/pkg/cache"
	"site-cms/pkg/config"
	"site-cms/pkg/logger"
	"site-cms/pkg/metrics"
	"site-cms/pkg/services"
	"site-cms/pkg/store"
	"site-cms/pkg/store/memory"
	"site-cms/pkg/store/mongo"
)

// app holds the long-lived dependencies shared by the commands.
type app struct {
	log         logger.Logger
	store       store.Store
	redis       *redis.Client
	metrics     *metrics.Metrics
	content     *services.Content
	revalidator *services.Revalidator
	media       *services.MediaService
	auth        *services.Auth
	forms       *services.Forms
}

func newApp(ctx context.Context) (*app, error) {
	config.Init()

	log, err := logger.New(logger.Config{Level: config.LogLevel, Development: config.LogDevelopment})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	a := &app{log: log, metrics: metrics.New()}

	if config.DatabaseURI != "" {
		st, err := mongo.New(ctx, config.DatabaseURI)
		if err != nil {
			return nil, err
		}
		a.store = st
		log.Info("using mongo store")
	} else {
		a.store = memory.New()
		log.Warn("DATABASE_URI is not set, content is kept in memory")
	}

	var c cache.Cache = cache.NewMemory()
	if config.RedisAddress != "" {
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Address:  config.RedisAddress,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})
		if err != nil {
			_ = a.close(ctx)
			return nil, err
		}
		a.redis = client
		c = cache.NewRedis(client)
		log.Info("using redis cache", logger.String("address", config.RedisAddress))
	}
	loader := cache.NewLoader(c, log, a.metrics)
	a.revalidator = services.NewRevalidator(loader)
	a.content = services.NewContent(a.store, loader, log, config.ListRevalidate)

	blobs, err := newBlobs(ctx, log)
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}
	a.media = services.NewMediaService(a.store.Media(), blobs, log, a.revalidator.Posts)
	a.auth = services.NewAuth(a.store.Users(), config.PayloadSecret)
	a.forms = services.NewForms(a.store.FormSubmissions(), log, a.metrics)
	return a, nil
}

func newBlobs(ctx context.Context, log logger.Logger) (services.BlobStore, error) {
	if config.S3Bucket != "" {
		log.Info("storing media in s3", logger.String("bucket", config.S3Bucket))
		return services.NewS3Blobs(ctx, services.S3Config{
			Bucket:          config.S3Bucket,
			Region:          config.S3Region,
			Endpoint:        config.S3Endpoint,
			AccessKeyID:     config.S3AccessKeyID,
			SecretAccessKey: config.S3SecretAccessKey,
			UsePathStyle:    config.S3UsePathStyle,
		})
	}
	return services.NewFSBlobs(config.MediaDir)
}

func (a *app) seeder() *services.Seeder {
	return services.NewSeeder(a.store, a.media, a.revalidator, a.log)
}

func (a *app) close(ctx context.Context) error {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	err := a.store.Close(ctx)
	_ = a.log.Sync()
	return err
}
