package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	TLS_DOMAINS       = ""             // e.g. "photos.example.com,example.com"
	BIND_ADDRESS      = "0.0.0.0:8080" // ignored when TLS_DOMAINS is set
	BASE_PATH         = ""             // e.g. "/api" when served next to the frontend
	DEBUG_MODE        = true
	ADMIN_SECRET      = "" // static shared secret, sent as the raw Authorization header
	TOKEN_SECRET      = "" // HMAC key for bearer tokens, required
	TOKEN_TTL_MINUTES = 120
	// Key-value backend: "sql", "redis", "dynamodb" or "memory"
	KV_BACKEND        = "sql"
	MYSQL_DSN         = "" // MySQL will be used if this is set
	POSTGRES_DSN      = "" // PostgreSQL will be used if MYSQL_DSN is not set and this is
	SQLITE_FILE       = "patio.db"
	REDIS_ADDRESS     = "127.0.0.1:6379"
	REDIS_TLS         = false
	DYNAMODB_TABLE    = "patio"
	DYNAMODB_REGION   = "us-east-1"
	DYNAMODB_ENDPOINT = "" // local endpoint, e.g. http://localhost:8000
	// Blob backend: "disk", "s3" or "memory"
	BLOB_BACKEND          = "disk"
	BLOB_DIR              = "./data/photos"
	S3_BUCKET             = ""
	S3_REGION             = "us-east-1"
	S3_ENDPOINT           = "" // for R2, MinIO, etc
	S3_KEY                = ""
	S3_SECRET             = ""
	S3_PREFIX             = "" // prepended to every object id
	LOGIN_RATE_PER_MINUTE = 10
	BLOB_DELETE_RETRIES   = 0 // failed blob deletes are only logged when 0
)

func init() {
	// A missing .env file is fine, the environment wins anyway
	_ = godotenv.Load()

	readEnvString("TLS_DOMAINS", &TLS_DOMAINS)
	readEnvString("BIND_ADDRESS", &BIND_ADDRESS)
	readEnvString("BASE_PATH", &BASE_PATH)
	readEnvBool("DEBUG_MODE", &DEBUG_MODE)
	readEnvString("ADMIN_SECRET", &ADMIN_SECRET)
	readEnvString("TOKEN_SECRET", &TOKEN_SECRET)
	readEnvInt("TOKEN_TTL_MINUTES", &TOKEN_TTL_MINUTES)
	readEnvString("KV_BACKEND", &KV_BACKEND)
	readEnvString("MYSQL_DSN", &MYSQL_DSN)
	readEnvString("POSTGRES_DSN", &POSTGRES_DSN)
	readEnvString("SQLITE_FILE", &SQLITE_FILE)
	readEnvString("REDIS_ADDRESS", &REDIS_ADDRESS)
	readEnvBool("REDIS_TLS", &REDIS_TLS)
	readEnvString("DYNAMODB_TABLE", &DYNAMODB_TABLE)
	readEnvString("DYNAMODB_REGION", &DYNAMODB_REGION)
	readEnvString("DYNAMODB_ENDPOINT", &DYNAMODB_ENDPOINT)
	readEnvString("BLOB_BACKEND", &BLOB_BACKEND)
	readEnvString("BLOB_DIR", &BLOB_DIR)
	readEnvString("S3_BUCKET", &S3_BUCKET)
	readEnvString("S3_REGION", &S3_REGION)
	readEnvString("S3_ENDPOINT", &S3_ENDPOINT)
	readEnvString("S3_KEY", &S3_KEY)
	readEnvString("S3_SECRET", &S3_SECRET)
	readEnvString("S3_PREFIX", &S3_PREFIX)
	readEnvInt("LOGIN_RATE_PER_MINUTE", &LOGIN_RATE_PER_MINUTE)
	readEnvInt("BLOB_DELETE_RETRIES", &BLOB_DELETE_RETRIES)

	BASE_PATH = strings.TrimSuffix(BASE_PATH, "/")
}

func readEnvString(name string, value *string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvBool(name string, value *bool) {
	v := strings.ToLower(os.Getenv(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func readEnvInt(name string, value *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*value = i
}
