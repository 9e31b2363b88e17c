package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"patio/auth"
	"patio/config"
	"patio/db"
	"patio/handlers"
	"patio/kv"
	"patio/processing"
	"patio/push"
	"patio/repository"
	"patio/storage"
	"patio/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/autotls"
	"github.com/gin-gonic/gin"
)

func openKV(ctx context.Context) (kv.Store, error) {
	switch config.KV_BACKEND {
	case "sql":
		db.Init(config.MYSQL_DSN, config.POSTGRES_DSN, config.SQLITE_FILE)
		return kv.NewSQLStore(db.Instance)
	case "redis":
		log.Printf("Using Redis at %s", config.REDIS_ADDRESS)
		return kv.NewRedisStore(ctx, config.REDIS_ADDRESS, config.REDIS_TLS)
	case "dynamodb":
		log.Printf("Using DynamoDB table %s", config.DYNAMODB_TABLE)
		return kv.NewDynamoStore(ctx, config.DYNAMODB_ENDPOINT, config.DYNAMODB_REGION, config.DYNAMODB_TABLE)
	case "memory":
		log.Print("Using in-memory key-value store, nothing will be persisted")
		return kv.NewMemoryStore(), nil
	}
	log.Fatalf("Unknown KV_BACKEND %q", config.KV_BACKEND)
	return nil, nil
}

func openBlobs() (storage.BlobStore, error) {
	switch config.BLOB_BACKEND {
	case "disk":
		log.Printf("Storing photos in %s", config.BLOB_DIR)
		return storage.NewDiskStorage(config.BLOB_DIR), nil
	case "s3":
		log.Printf("Storing photos in bucket %s", config.S3_BUCKET)
		return storage.NewS3Storage(storage.Bucket{
			Name:     config.S3_BUCKET,
			Region:   config.S3_REGION,
			Endpoint: config.S3_ENDPOINT,
			Prefix:   config.S3_PREFIX,
			S3Key:    config.S3_KEY,
			S3Secret: config.S3_SECRET,
		})
	case "memory":
		return storage.NewMemoryStore(), nil
	}
	log.Fatalf("Unknown BLOB_BACKEND %q", config.BLOB_BACKEND)
	return nil, nil
}

func main() {
	if config.TOKEN_SECRET == "" {
		log.Fatal("TOKEN_SECRET is not set")
	}
	ctx := context.Background()
	store, err := openKV(ctx)
	if err != nil {
		log.Fatalf("Key-value store: %v", err)
	}
	blobs, err := openBlobs()
	if err != nil {
		log.Fatalf("Blob store: %v", err)
	}

	repo := repository.New(store)
	tokens := auth.NewTokens(config.TOKEN_SECRET, time.Duration(config.TOKEN_TTL_MINUTES)*time.Minute)
	api := handlers.New(repo, blobs, tokens, push.NewHub())
	if config.BLOB_DELETE_RETRIES > 0 {
		api.Cleanup = processing.NewQueue(config.BLOB_DELETE_RETRIES)
		go api.Cleanup.Start(ctx, time.Minute)
	}

	if !config.DEBUG_MODE {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	_ = router.SetTrustedProxies([]string{})
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length", "ETag"},
		MaxAge:        30 * 24 * time.Hour,
	}))
	// Photos are already compressed and the change feed needs the raw connection
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		config.BASE_PATH + "/photo/",
		config.BASE_PATH + "/library/watch",
	})))
	if config.DEBUG_MODE {
		router.Use(utils.ErrorLogMiddleware)
	}
	router.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	base := router.Group(config.BASE_PATH)
	authRouter := &auth.Router{
		Base:     base,
		Resolver: &auth.Resolver{Users: repo, Tokens: tokens, AdminSecret: config.ADMIN_SECRET},
	}
	loginLimit := utils.NewRateLimiter(config.LOGIN_RATE_PER_MINUTE, 5)
	api.Register(base, authRouter, loginLimit.Handler())

	if config.TLS_DOMAINS != "" {
		err = autotls.Run(router, strings.Split(config.TLS_DOMAINS, ",")...)
	} else {
		err = router.Run(config.BIND_ADDRESS)
	}
	log.Fatalf("Server stopped: %v", err)
}
