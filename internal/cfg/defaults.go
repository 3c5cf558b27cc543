package cfg

import "github.com/spf13/viper"

// setting связывает ключ viper с переменной окружения и значением по умолчанию.
type setting struct {
	key string
	env string
	def string
}

var settings = []setting{
	{"config_file", "CONFIG_FILE", ""},

	{"log.level", "LOG_LEVEL", "info"},
	{"log.format", "LOG_FORMAT", "json"},

	{"http.port", "HTTP_PORT", "8080"},
	{"http.read_timeout", "HTTP_READ_TIMEOUT", "15s"},
	{"http.write_timeout", "HTTP_WRITE_TIMEOUT", "60s"},
	{"http.idle_timeout", "KEEP_ALIVE", "60s"},
	{"http.max_upload_bytes", "HTTP_MAX_UPLOAD_BYTES", "15728640"},

	{"fetcher.timeout", "FETCH_TIMEOUT", "10s"},
	{"fetcher.max_attempts", "FETCH_MAX_ATTEMPTS", "3"},
	{"fetcher.backoff", "FETCH_BACKOFF", "1s"},
	{"fetcher.backoff_jitter", "FETCH_BACKOFF_JITTER", "0"},
	{"fetcher.user_agent", "FETCH_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"},
	{"fetcher.accept", "FETCH_ACCEPT", "image/*,*/*;q=0.8"},
	{"fetcher.max_bytes", "FETCH_MAX_BYTES", "15728640"},
	{"fetcher.insecure_skip_verify", "FETCH_INSECURE_SKIP_VERIFY", "false"},

	{"imaging.jpeg_quality", "IMAGE_JPEG_QUALITY", "75"},

	{"ml.host", "ML_HOST", "ml-service"},
	{"ml.port", "ML_PORT", "50051"},
	{"ml.method", "ML_METHOD", "/ml.MachineLearningService/VectorizeImage"},
	{"ml.model_version", "ML_MODEL_VERSION", "mobilenet_v2"},
	{"ml.max_concurrent", "ML_MAX_CONCURRENT", "8"},
	{"ml.max_retries", "ML_MAX_RETRIES", "3"},
	{"ml.timeout", "ML_TIMEOUT", "30s"},

	{"match.top_k", "MATCH_TOP_K", "10"},

	{"catalog.backend", "CATALOG_BACKEND", CatalogBackendPostgres},
	{"catalog.cache_enabled", "CATALOG_CACHE_ENABLED", "false"},
	{"catalog.cache_ttl", "CATALOG_CACHE_TTL", "1m"},

	{"postgres.host", "POSTGRES_HOST", "localhost"},
	{"postgres.port", "POSTGRES_PORT", "5432"},
	{"postgres.user", "POSTGRES_USER", ""},
	{"postgres.password", "POSTGRES_PASSWORD", ""},
	{"postgres.db", "POSTGRES_DB", ""},
	{"postgres.ssl_mode", "SSL_MODE", "disable"},
	{"postgres.migrations_path", "MIGRATIONS_PATH", "file://db/migrations"},

	{"qdrant.host", "QDRANT_HOST", ""},
	{"qdrant.port", "QDRANT_GRPC_PORT", "6334"},
	{"qdrant.api_key", "QDRANT__SERVICE__API_KEY", ""},
	{"qdrant.collection", "COLLECTION_NAME", "catalog"},
	{"qdrant.use_tls", "QDRANT_USE_TLS", "false"},
	{"qdrant.vector_size", "VECTOR_SIZE", "1280"},
	{"qdrant.scroll_page_size", "QDRANT_SCROLL_PAGE_SIZE", "256"},

	{"redis.addr", "REDIS_ADDR", "localhost:6379"},
	{"redis.password", "REDIS_PASSWORD", ""},
	{"redis.user", "REDIS_USER", ""},
	{"redis.db", "REDIS_DB_ID", "0"},
	{"redis.max_retries", "MAX_RETRIES", "3"},
	{"redis.dial_timeout", "DIAL_TIMEOUT", "5s"},
	{"redis.read_timeout", "READ_TIMEOUT", "3s"},
	{"redis.write_timeout", "WRITE_TIMEOUT", "3s"},

	{"minio.endpoint", "MINIO_ENDPOINT", "minio:9000"},
	{"minio.bucket", "BUCKET_NAME", ""},
	{"minio.user", "MINIO_ROOT_USER", ""},
	{"minio.password", "MINIO_ROOT_PASSWORD", ""},
	{"minio.use_ssl", "MINIO_USE_SSL", "false"},
	{"minio.upload_limit", "UPLOAD_IMAGES_LIMIT", "10"},

	{"kafka.brokers", "KAFKA_BROKERS", ""},
	{"kafka.topic", "KAFKA_TOPIC", "catalog.changed"},
	{"kafka.network_mode", "KAFKA_NETWORK_MODE", "tcp"},
	{"kafka.partitions", "KAFKA_PARTITIONS", "3"},
	{"kafka.replication_factor", "REPLICATION_FACTOR", "1"},
}

var envNames = func() map[string]string {
	m := make(map[string]string, len(settings))
	for _, s := range settings {
		m[s.key] = s.env
	}
	return m
}()

func newViper() *viper.Viper {
	v := viper.New()
	for _, s := range settings {
		v.SetDefault(s.key, s.def)
		_ = v.BindEnv(s.key, s.env)
	}

	return v
}
