package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jimlawless/whereami"
	"github.com/joho/godotenv"

	"github.com/sellora-tech/catalog-pipeline/pkg/e"
	"github.com/sellora-tech/catalog-pipeline/pkg/logger"
)

type Config struct {
	Db        *PGDBCfg
	Redis     *RedisCfg
	Minio     *MinIOCfg
	Qdrant    *QdrantCfg
	Kafka     *KafkaCfg
	Http      *HTTPConfig
	Fcm       *FCMCfg
	Inference *InferenceCfg
	Indexer   *IndexerCfg
	Matcher   *MatcherCfg
}

type PGDBCfg struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	DocumentTTL time.Duration // TTL кэша документов поискового индекса
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Бакет с изображениями товаров
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
}

type QdrantCfg struct {
	Host                 string
	Port                 int
	ApiKey               string
	QdrantCollectionName string // имя коллекции в Qdrant
	UseTLS               bool
	VectorSize           uint64
}

type KafkaCfg struct {
	Brokers        []string
	Topic          string // топик событий изменения товаров
	GroupID        string
	EmbedWorkers   int // размер пула фоновых задач генерации эмбеддингов
	EmbedQueueSize int
	HandleTimeout  time.Duration
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type FCMCfg struct {
	CredentialsFile string
}

type InferenceCfg struct {
	URL            string
	MaxRetries     int
	RequestTimeout time.Duration
	VectorSize     int
	MaxImageSize   int64
}

type IndexerCfg struct {
	DebounceDelay    time.Duration
	GeohashPrecision int
	WriteTimeout     time.Duration
}

type MatcherCfg struct {
	Interval     time.Duration
	RunTimeout   time.Duration
	Concurrency  int
	QueryTimeout time.Duration
	SendTimeout  time.Duration
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
// Наличие .env-файла необязательно.
func Load(log logger.Logger) (*Config, error) {
	_ = godotenv.Load()

	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrant, err := loadQdrantCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	fcm, err := loadFCMCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	inference, err := loadInferenceCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	indexer, err := loadIndexerCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	matcher, err := loadMatcherCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Db:        db,
		Redis:     redis,
		Minio:     minio,
		Qdrant:    qdrant,
		Kafka:     kafka,
		Http:      http,
		Fcm:       fcm,
		Inference: inference,
		Indexer:   indexer,
		Matcher:   matcher,
	}, nil
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost    = "localhost"
		defaultPort    = "5432"
		defaultSSLMode = "disable"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		err := fmt.Errorf("POSTGRES_DB is required")
		log.Errorf(err, "missing POSTGRES_DB")
		return nil, err
	}

	return &PGDBCfg{
		Host:     getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:     getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:     user,
		Password: password,
		DBName:   dbName,
		SSLMode:  getEnvOrDefault("SSL_MODE", defaultSSLMode),
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr         = "localhost:6379"
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultDocumentTTL  = 10 * time.Minute
	)

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("REDIS_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid REDIS_MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("REDIS_DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("REDIS_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("REDIS_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_WRITE_TIMEOUT")
		return nil, err
	}

	documentTTL, err := parseDurationEnv("DOCUMENT_TTL", defaultDocumentTTL)
	if err != nil {
		log.Errorf(err, "invalid DOCUMENT_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Addr:        getEnvOrDefault("REDIS_ADDR", defaultAddr),
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     timeout,
		DocumentTTL: documentTTL,
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL   = false
		defaultEndpoint = "minio:9000"
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint),
		BucketName:        getEnv("BUCKET_NAME"),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}, nil
}

func loadQdrantCfg(log logger.Logger) (*QdrantCfg, error) {
	const (
		defaultQdrantGRPCPort = "6334"
		defaultUseTLS         = false
		defaultVectorSize     = "512"
	)

	port, err := strconv.Atoi(getEnvOrDefault("QDRANT_GRPC_PORT", defaultQdrantGRPCPort))
	if err != nil {
		log.Errorf(err, "invalid QDRANT_GRPC_PORT")
		return nil, err
	}

	useTLS, err := strconv.ParseBool(getEnvOrDefault("QDRANT_USE_TLS", strconv.FormatBool(defaultUseTLS)))
	if err != nil {
		log.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	vectorSize, err := strconv.ParseUint(getEnvOrDefault("VECTOR_SIZE", defaultVectorSize), 10, 64)
	if err != nil {
		log.Errorf(err, "invalid VECTOR_SIZE")
		return nil, err
	}

	return &QdrantCfg{
		Host:                 getEnv("QDRANT_HOST"),
		Port:                 port,
		ApiKey:               getEnv("QDRANT__SERVICE__API_KEY"),
		QdrantCollectionName: getEnv("COLLECTION_NAME"),
		UseTLS:               useTLS,
		VectorSize:           vectorSize,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultGroupID        = "catalog-pipeline"
		defaultEmbedWorkers   = 4
		defaultEmbedQueueSize = 64
		defaultHandleTimeout  = 30 * time.Second
	)

	brokerStr := os.Getenv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS environment variable is required")
	}
	brokers := strings.Split(brokerStr, ",")

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC environment variable is required")
	}

	embedWorkers, err := parseIntEnv("EMBED_WORKERS", defaultEmbedWorkers)
	if err != nil {
		return nil, e.Wrap("EMBED_WORKERS", err)
	}

	embedQueueSize, err := parseIntEnv("EMBED_QUEUE_SIZE", defaultEmbedQueueSize)
	if err != nil {
		return nil, e.Wrap("EMBED_QUEUE_SIZE", err)
	}

	handleTimeout, err := parseDurationEnv("KAFKA_HANDLE_TIMEOUT", defaultHandleTimeout)
	if err != nil {
		return nil, e.Wrap("KAFKA_HANDLE_TIMEOUT", err)
	}

	return &KafkaCfg{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        getEnvOrDefault("KAFKA_GROUP_ID", defaultGroupID),
		EmbedWorkers:   embedWorkers,
		EmbedQueueSize: embedQueueSize,
		HandleTimeout:  handleTimeout,
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 5 * time.Second
		defaultWriteTimeout = 10 * time.Second
		defaultIdleTimeout  = 60 * time.Second
	)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:         getEnvOrDefault("HTTP_PORT", defaultPort),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadFCMCfg() (*FCMCfg, error) {
	credentialsFile := getEnv("FCM_CREDENTIALS_FILE")
	if credentialsFile == "" {
		return nil, fmt.Errorf("FCM_CREDENTIALS_FILE environment variable is required")
	}

	return &FCMCfg{
		CredentialsFile: credentialsFile,
	}, nil
}

func loadInferenceCfg() (*InferenceCfg, error) {
	const (
		defaultMaxRetries     = 3
		defaultRequestTimeout = 30 * time.Second
		defaultVectorSize     = "512"
		defaultMaxImageSize   = int64(20 << 20) // 20 MiB
	)

	url := getEnv("INFERENCE_URL")
	if url == "" {
		return nil, fmt.Errorf("INFERENCE_URL environment variable is required")
	}

	maxRetries, err := parseIntEnv("INFERENCE_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		return nil, e.Wrap("INFERENCE_MAX_RETRIES", err)
	}

	requestTimeout, err := parseDurationEnv("INFERENCE_REQUEST_TIMEOUT", defaultRequestTimeout)
	if err != nil {
		return nil, e.Wrap("INFERENCE_REQUEST_TIMEOUT", err)
	}

	vectorSize, err := strconv.Atoi(getEnvOrDefault("VECTOR_SIZE", defaultVectorSize))
	if err != nil {
		return nil, e.Wrap("VECTOR_SIZE", err)
	}

	return &InferenceCfg{
		URL:            url,
		MaxRetries:     maxRetries,
		RequestTimeout: requestTimeout,
		VectorSize:     vectorSize,
		MaxImageSize:   defaultMaxImageSize,
	}, nil
}

func loadIndexerCfg() (*IndexerCfg, error) {
	const (
		defaultDebounceDelay    = 5 * time.Second
		defaultGeohashPrecision = 7
		defaultWriteTimeout     = 10 * time.Second
	)

	debounceDelay, err := parseDurationEnv("INDEX_DEBOUNCE_DELAY", defaultDebounceDelay)
	if err != nil {
		return nil, e.Wrap("INDEX_DEBOUNCE_DELAY", err)
	}

	geohashPrecision, err := parseIntEnv("GEOHASH_PRECISION", defaultGeohashPrecision)
	if err != nil {
		return nil, e.Wrap("GEOHASH_PRECISION", err)
	}

	writeTimeout, err := parseDurationEnv("INDEX_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		return nil, e.Wrap("INDEX_WRITE_TIMEOUT", err)
	}

	return &IndexerCfg{
		DebounceDelay:    debounceDelay,
		GeohashPrecision: geohashPrecision,
		WriteTimeout:     writeTimeout,
	}, nil
}

func loadMatcherCfg() (*MatcherCfg, error) {
	const (
		defaultInterval     = 15 * time.Minute
		defaultRunTimeout   = 10 * time.Minute
		defaultConcurrency  = 4
		defaultQueryTimeout = 10 * time.Second
		defaultSendTimeout  = 15 * time.Second
	)

	interval, err := parseDurationEnv("MATCHER_INTERVAL", defaultInterval)
	if err != nil {
		return nil, e.Wrap("MATCHER_INTERVAL", err)
	}

	runTimeout, err := parseDurationEnv("MATCHER_RUN_TIMEOUT", defaultRunTimeout)
	if err != nil {
		return nil, e.Wrap("MATCHER_RUN_TIMEOUT", err)
	}

	concurrency, err := parseIntEnv("MATCHER_CONCURRENCY", defaultConcurrency)
	if err != nil {
		return nil, e.Wrap("MATCHER_CONCURRENCY", err)
	}

	queryTimeout, err := parseDurationEnv("MATCHER_QUERY_TIMEOUT", defaultQueryTimeout)
	if err != nil {
		return nil, e.Wrap("MATCHER_QUERY_TIMEOUT", err)
	}

	sendTimeout, err := parseDurationEnv("MATCHER_SEND_TIMEOUT", defaultSendTimeout)
	if err != nil {
		return nil, e.Wrap("MATCHER_SEND_TIMEOUT", err)
	}

	return &MatcherCfg{
		Interval:     interval,
		RunTimeout:   runTimeout,
		Concurrency:  concurrency,
		QueryTimeout: queryTimeout,
		SendTimeout:  sendTimeout,
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}
