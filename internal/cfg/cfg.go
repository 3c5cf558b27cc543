package cfg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/spf13/viper"
)

const (
	CatalogBackendPostgres = "postgres"
	CatalogBackendQdrant   = "qdrant"
)

type Config struct {
	Log     *LogCfg
	Http    *HTTPConfig
	Fetcher *FetcherCfg
	Imaging *ImagingCfg
	Ml      *MLServiceCfg
	Match   *MatchCfg
	Catalog *CatalogCfg
	Db      *PGDBCfg
	Qdrant  *QdrantCfg
	Redis   *RedisCfg
	Minio   *MinIOCfg
	Kafka   *KafkaCfg
}

type LogCfg struct {
	Level  string
	Format string // json | console
}

type HTTPConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxUploadBytes int64
}

// FetcherCfg — параметры загрузки изображения по URL.
type FetcherCfg struct {
	Timeout       time.Duration // таймаут одной попытки
	MaxAttempts   int
	Backoff       time.Duration // фиксированная пауза между попытками
	BackoffJitter float64
	UserAgent     string
	Accept        string
	MaxBytes      int64
	// InsecureSkipVerify отключает проверку TLS-сертификата только для клиента загрузки изображений.
	InsecureSkipVerify bool
}

type ImagingCfg struct {
	JPEGQuality int
}

type MLServiceCfg struct {
	Addr          string
	Method        string // полное имя gRPC-метода векторизации
	ModelVersion  string
	MaxConcurrent int
	MaxRetries    int
	Timeout       time.Duration
}

type MatchCfg struct {
	TopK int
}

type CatalogCfg struct {
	Backend      string // postgres | qdrant
	CacheEnabled bool
	CacheTTL     time.Duration
}

type PGDBCfg struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

type QdrantCfg struct {
	Enabled              bool
	Port                 int
	Host                 string
	ApiKey               string
	QdrantCollectionName string // имя коллекции в Qdrant
	UseTLS               bool
	VectorSize           uint64
	ScrollPageSize       uint32
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Название конкретного бакета в Minio
	MinioRootUser     string // Имя пользователя для доступа к Minio
	MinioRootPassword string // Пароль для доступа к Minio
	MinioUseSSL       bool
	UploadImagesLimit int // Лимит на одновременные загрузки в S3
}

// KafkaCfg — публикация событий изменения каталога. Пустой Brokers отключает публикацию.
type KafkaCfg struct {
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
}

// Load загружает конфигурацию из переменных окружения (и файла CONFIG_FILE, если задан).
// Возвращает ошибку при некорректных значениях.
func Load(log logger.Logger) (*Config, error) {
	v := newViper()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			log.Errorf(err, "failed to read config file %s", file)
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
	}

	l := &loader{v: v, log: log}

	cfg := &Config{
		Log:     l.loadLogCfg(),
		Http:    l.loadHTTPConfig(),
		Fetcher: l.loadFetcherCfg(),
		Imaging: l.loadImagingCfg(),
		Ml:      l.loadMLServiceCfg(),
		Match:   l.loadMatchCfg(),
		Catalog: l.loadCatalogCfg(),
		Db:      l.loadPGDBCfg(),
		Qdrant:  l.loadQdrantCfg(),
		Redis:   l.loadRedisCfg(),
		Minio:   l.loadMinIOCfg(),
		Kafka:   l.loadKafkaCfg(),
	}

	if l.err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), l.err)
	}

	if err := cfg.validate(); err != nil {
		log.Errorf(err, "invalid configuration")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return cfg, nil
}

// validate проверяет связанные между собой параметры.
func (c *Config) validate() error {
	if c.Fetcher.MaxAttempts < 1 {
		return fmt.Errorf("FETCH_MAX_ATTEMPTS must be >= 1, got %d", c.Fetcher.MaxAttempts)
	}

	if c.Match.TopK < 1 {
		return fmt.Errorf("MATCH_TOP_K must be >= 1, got %d", c.Match.TopK)
	}

	if c.Imaging.JPEGQuality < 1 || c.Imaging.JPEGQuality > 100 {
		return fmt.Errorf("IMAGE_JPEG_QUALITY must be in [1,100], got %d", c.Imaging.JPEGQuality)
	}

	switch c.Catalog.Backend {
	case CatalogBackendPostgres:
		return c.Db.validate()
	case CatalogBackendQdrant:
		if !c.Qdrant.Enabled {
			return fmt.Errorf("CATALOG_BACKEND=qdrant requires QDRANT_HOST")
		}
		return nil
	default:
		return fmt.Errorf("unknown CATALOG_BACKEND %q", c.Catalog.Backend)
	}
}

func (c *PGDBCfg) validate() error {
	if c.User == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}

	if c.Password == "" {
		return fmt.Errorf("POSTGRES_PASSWORD is required")
	}

	if c.DBName == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}

	return nil
}

// Validate проверяет параметры MinIO; нужны только процессам загрузки каталога.
func (c *MinIOCfg) Validate() error {
	if c.BucketName == "" {
		return fmt.Errorf("BUCKET_NAME is required")
	}

	if c.MinioRootUser == "" || c.MinioRootPassword == "" {
		return fmt.Errorf("MINIO_ROOT_USER and MINIO_ROOT_PASSWORD are required")
	}

	return nil
}

// Enabled сообщает, настроена ли публикация событий в Kafka.
func (c *KafkaCfg) Enabled() bool {
	return len(c.Brokers) > 0
}

type loader struct {
	v   *viper.Viper
	log logger.Logger
	err error
}

func (l *loader) loadLogCfg() *LogCfg {
	return &LogCfg{
		Level:  l.v.GetString("log.level"),
		Format: l.v.GetString("log.format"),
	}
}

func (l *loader) loadHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Port:           l.v.GetString("http.port"),
		ReadTimeout:    l.duration("http.read_timeout"),
		WriteTimeout:   l.duration("http.write_timeout"),
		IdleTimeout:    l.duration("http.idle_timeout"),
		MaxUploadBytes: l.integer64("http.max_upload_bytes"),
	}
}

func (l *loader) loadFetcherCfg() *FetcherCfg {
	return &FetcherCfg{
		Timeout:            l.duration("fetcher.timeout"),
		MaxAttempts:        l.integer("fetcher.max_attempts"),
		Backoff:            l.duration("fetcher.backoff"),
		BackoffJitter:      l.float("fetcher.backoff_jitter"),
		UserAgent:          l.v.GetString("fetcher.user_agent"),
		Accept:             l.v.GetString("fetcher.accept"),
		MaxBytes:           l.integer64("fetcher.max_bytes"),
		InsecureSkipVerify: l.boolean("fetcher.insecure_skip_verify"),
	}
}

func (l *loader) loadImagingCfg() *ImagingCfg {
	return &ImagingCfg{
		JPEGQuality: l.integer("imaging.jpeg_quality"),
	}
}

func (l *loader) loadMLServiceCfg() *MLServiceCfg {
	return &MLServiceCfg{
		Addr:          l.v.GetString("ml.host") + ":" + l.v.GetString("ml.port"),
		Method:        l.v.GetString("ml.method"),
		ModelVersion:  l.v.GetString("ml.model_version"),
		MaxConcurrent: l.integer("ml.max_concurrent"),
		MaxRetries:    l.integer("ml.max_retries"),
		Timeout:       l.duration("ml.timeout"),
	}
}

func (l *loader) loadMatchCfg() *MatchCfg {
	return &MatchCfg{
		TopK: l.integer("match.top_k"),
	}
}

func (l *loader) loadCatalogCfg() *CatalogCfg {
	return &CatalogCfg{
		Backend:      strings.ToLower(l.v.GetString("catalog.backend")),
		CacheEnabled: l.boolean("catalog.cache_enabled"),
		CacheTTL:     l.duration("catalog.cache_ttl"),
	}
}

func (l *loader) loadPGDBCfg() *PGDBCfg {
	return &PGDBCfg{
		Host:           l.v.GetString("postgres.host"),
		Port:           l.v.GetString("postgres.port"),
		User:           l.v.GetString("postgres.user"),
		Password:       l.v.GetString("postgres.password"),
		DBName:         l.v.GetString("postgres.db"),
		SSLMode:        l.v.GetString("postgres.ssl_mode"),
		MigrationsPath: l.v.GetString("postgres.migrations_path"),
	}
}

func (l *loader) loadQdrantCfg() *QdrantCfg {
	host := l.v.GetString("qdrant.host")

	return &QdrantCfg{
		Enabled:              host != "",
		Host:                 host,
		Port:                 l.integer("qdrant.port"),
		ApiKey:               l.v.GetString("qdrant.api_key"),
		QdrantCollectionName: l.v.GetString("qdrant.collection"),
		UseTLS:               l.boolean("qdrant.use_tls"),
		VectorSize:           uint64(l.integer64("qdrant.vector_size")),
		ScrollPageSize:       uint32(l.integer("qdrant.scroll_page_size")),
	}
}

func (l *loader) loadRedisCfg() *RedisCfg {
	readTimeout := l.duration("redis.read_timeout")
	writeTimeout := l.duration("redis.write_timeout")

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Addr:        l.v.GetString("redis.addr"),
		Password:    l.v.GetString("redis.password"),
		User:        l.v.GetString("redis.user"),
		DB:          l.integer("redis.db"),
		MaxRetries:  l.integer("redis.max_retries"),
		DialTimeout: l.duration("redis.dial_timeout"),
		Timeout:     timeout,
	}
}

func (l *loader) loadMinIOCfg() *MinIOCfg {
	return &MinIOCfg{
		MinioEndpoint:     l.v.GetString("minio.endpoint"),
		BucketName:        l.v.GetString("minio.bucket"),
		MinioRootUser:     l.v.GetString("minio.user"),
		MinioRootPassword: l.v.GetString("minio.password"),
		MinioUseSSL:       l.boolean("minio.use_ssl"),
		UploadImagesLimit: l.integer("minio.upload_limit"),
	}
}

func (l *loader) loadKafkaCfg() *KafkaCfg {
	var brokers []string
	for _, b := range strings.Split(l.v.GetString("kafka.brokers"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &KafkaCfg{
		Brokers:           brokers,
		Topic:             l.v.GetString("kafka.topic"),
		NetworkMode:       l.v.GetString("kafka.network_mode"),
		Partitions:        l.integer("kafka.partitions"),
		ReplicationFactor: l.integer("kafka.replication_factor"),
	}
}

// duration считывает длительность; при ошибке запоминает первую и возвращает 0.
func (l *loader) duration(key string) time.Duration {
	raw := l.v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		l.fail(key, raw, err)
		return 0
	}

	return d
}

func (l *loader) integer(key string) int {
	raw := l.v.GetString(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		l.fail(key, raw, e.ErrIncorrectEnvVariable)
		return 0
	}

	return n
}

func (l *loader) integer64(key string) int64 {
	raw := l.v.GetString(key)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		l.fail(key, raw, e.ErrIncorrectEnvVariable)
		return 0
	}

	return n
}

func (l *loader) float(key string) float64 {
	raw := l.v.GetString(key)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		l.fail(key, raw, e.ErrIncorrectEnvVariable)
		return 0
	}

	return f
}

func (l *loader) boolean(key string) bool {
	raw := l.v.GetString(key)
	b, err := strconv.ParseBool(raw)
	if err != nil {
		l.fail(key, raw, err)
		return false
	}

	return b
}

func (l *loader) fail(key string, raw string, err error) {
	env := envNames[key]
	l.log.Errorf(err, "invalid %s=%q", env, raw)
	if l.err == nil {
		l.err = e.Wrap(env, err)
	}
}
